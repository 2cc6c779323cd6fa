package source

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/goran-ethernal/StarkIndexor/internal/handlers"
	"github.com/goran-ethernal/StarkIndexor/internal/rpc"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	pkgrpc "github.com/goran-ethernal/StarkIndexor/pkg/rpc"
)

type codeError struct {
	code int
}

func (e *codeError) Error() string  { return fmt.Sprintf("rpc error %d", e.code) }
func (e *codeError) ErrorCode() int { return e.code }

// fakeClient serves events from memory. Block timestamps are 1000 + block number.
type fakeClient struct {
	mu sync.Mutex

	head   uint64
	events map[string][]pkgrpc.EmittedEvent
	// l1 is the highest block reported ACCEPTED_ON_L1
	l1 uint64
	// maxPage rejects larger pages with PAGE_SIZE_TOO_BIG when set
	maxPage int

	getEventsCalls []pkgrpc.EventFilter
	headerCalls    int
}

var _ pkgrpc.Client = (*fakeClient)(nil)

func newFakeClient(head uint64) *fakeClient {
	return &fakeClient{head: head, events: make(map[string][]pkgrpc.EmittedEvent)}
}

func (c *fakeClient) add(address string, block uint64, selector string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events[address] = append(c.events[address], pkgrpc.EmittedEvent{
		FromAddress:     starknet.MustParseFelt(address),
		Keys:            []starknet.Felt{starknet.Selector(selector)},
		BlockNumber:     block,
		TransactionHash: starknet.FeltFromUint64(block*100 + uint64(len(c.events[address]))),
	})
}

func (c *fakeClient) Call(context.Context, starknet.Felt, string, []starknet.Felt) ([]starknet.Felt, error) {
	return nil, &codeError{code: rpc.CodeContractNotFound}
}

func (c *fakeClient) Close() {}

func (c *fakeClient) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.head, nil
}

func (c *fakeClient) GetEvents(_ context.Context, filter pkgrpc.EventFilter) (*pkgrpc.EventsPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.getEventsCalls = append(c.getEventsCalls, filter)
	if c.maxPage > 0 && filter.PageSize > c.maxPage {
		return nil, &codeError{code: rpc.CodePageSizeTooBig}
	}

	var matching []pkgrpc.EmittedEvent
	for _, ev := range c.events[filter.Address.Hex()] {
		if ev.BlockNumber >= filter.FromBlock && ev.BlockNumber <= filter.ToBlock {
			matching = append(matching, ev)
		}
	}

	offset := 0
	if filter.ContinuationToken != "" {
		var err error
		offset, err = strconv.Atoi(filter.ContinuationToken)
		if err != nil {
			return nil, &codeError{code: rpc.CodeInvalidContinuationToken}
		}
	}

	end := min(offset+filter.PageSize, len(matching))
	page := &pkgrpc.EventsPage{Events: matching[offset:end]}
	if end < len(matching) {
		page.ContinuationToken = strconv.Itoa(end)
	}

	return page, nil
}

func (c *fakeClient) header(n uint64) *pkgrpc.BlockHeader {
	status := pkgrpc.BlockStatusAcceptedOnL2
	if n <= c.l1 {
		status = pkgrpc.BlockStatusAcceptedOnL1
	}
	return &pkgrpc.BlockHeader{
		Number:    n,
		Hash:      starknet.FeltFromUint64(n),
		Timestamp: 1000 + n,
		Status:    status,
	}
}

func (c *fakeClient) GetBlockHeader(_ context.Context, n uint64) (*pkgrpc.BlockHeader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.headerCalls++
	return c.header(n), nil
}

func (c *fakeClient) BatchGetBlockHeaders(_ context.Context, blocks []uint64) ([]*pkgrpc.BlockHeader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	headers := make([]*pkgrpc.BlockHeader, len(blocks))
	for i, n := range blocks {
		headers[i] = c.header(n)
	}
	return headers, nil
}

// fakeDispatcher records applied events. Events named by spawnSelector register spawn as a
// child through onRegister, the way a factory handler does.
type fakeDispatcher struct {
	mu        sync.Mutex
	addresses []string
	handled   []*starknet.Event

	spawnSelector string
	spawn         string
	onRegister    func(handlers.Registration)

	err error
}

func (d *fakeDispatcher) Addresses() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.addresses...)
}

func (d *fakeDispatcher) HandleEvents(_ context.Context, events []*starknet.Event) error {
	if d.err != nil {
		return d.err
	}

	for _, ev := range events {
		d.mu.Lock()
		d.handled = append(d.handled, ev)
		spawns := d.spawn != "" && ev.Selector().Equal(starknet.Selector(d.spawnSelector))
		if spawns {
			d.addresses = append(d.addresses, d.spawn)
		}
		d.mu.Unlock()

		if spawns && d.onRegister != nil {
			d.onRegister(handlers.Registration{Name: "child", Address: d.spawn, Block: ev.BlockNumber})
		}
	}

	return nil
}

func (d *fakeDispatcher) blocks() []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]uint64, len(d.handled))
	for i, ev := range d.handled {
		out[i] = ev.BlockNumber
	}
	return out
}
