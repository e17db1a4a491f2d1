package engine

import "context"

// Paginator walks a provider listing one page at a time. It follows the shape
// of the aws-sdk-go-v2 paginators so SDK paginators adapt with little glue.
type Paginator interface {
	HasMorePages() bool
	NextPage(ctx context.Context) ([]ResourceRecord, error)
}

// Lister opens a fresh listing. Each call starts from the first page.
type Lister interface {
	List() Paginator
}

// ListerFunc adapts a function to Lister.
type ListerFunc func() Paginator

func (f ListerFunc) List() Paginator { return f() }

// PageFunc fetches the page at cursor. An empty cursor requests the first
// page; an empty next cursor ends the listing.
type PageFunc func(ctx context.Context, cursor string) (records []ResourceRecord, next string, err error)

// CursorPaginator drives a PageFunc until the provider stops returning a
// cursor or repeats the one it was given.
type CursorPaginator struct {
	fetch     PageFunc
	cursor    string
	firstPage bool
	done      bool
}

func NewCursorPaginator(fetch PageFunc) *CursorPaginator {
	return &CursorPaginator{fetch: fetch, firstPage: true}
}

func (p *CursorPaginator) HasMorePages() bool {
	return p.firstPage || !p.done
}

func (p *CursorPaginator) NextPage(ctx context.Context) ([]ResourceRecord, error) {
	if !p.HasMorePages() {
		return nil, nil
	}
	records, next, err := p.fetch(ctx, p.cursor)
	if err != nil {
		return nil, err
	}
	p.firstPage = false
	if next == "" || next == p.cursor {
		p.done = true
	}
	p.cursor = next
	return records, nil
}

// CursorLister returns a Lister that starts a new CursorPaginator per call.
func CursorLister(fetch PageFunc) Lister {
	return ListerFunc(func() Paginator { return NewCursorPaginator(fetch) })
}

type staticPaginator struct {
	records []ResourceRecord
	done    bool
}

func (s *staticPaginator) HasMorePages() bool { return !s.done }

func (s *staticPaginator) NextPage(context.Context) ([]ResourceRecord, error) {
	s.done = true
	return s.records, nil
}

// Static lists a fixed set of records without calling any provider. Commands
// that act on a single named resource use it.
func Static(records ...ResourceRecord) Lister {
	return ListerFunc(func() Paginator {
		return &staticPaginator{records: records}
	})
}

// Drain reads every page of p. The first page error aborts and is returned
// with whatever was read discarded.
func Drain(ctx context.Context, p Paginator) ([]ResourceRecord, error) {
	var out []ResourceRecord
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
	}
	return out, nil
}
