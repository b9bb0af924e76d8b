package hosts

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/3cpo-dev/sweep/internal/dispatch"
	"github.com/3cpo-dev/sweep/internal/inventory"
	"github.com/3cpo-dev/sweep/internal/selector"
)

type fakeFinder struct {
	assets []inventory.Asset
	err    error
	got    selector.Selector
	calls  int
}

func (f *fakeFinder) Find(ctx context.Context, sel selector.Selector) ([]inventory.Asset, error) {
	f.calls++
	f.got = sel
	return f.assets, f.err
}

func TestReadList(t *testing.T) {
	got, err := ReadList(strings.NewReader("host1\n# comment\n\nhost2\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"host1", "host2"}) {
		t.Fatalf("got %v", got)
	}
}

func TestReadListKeepsOrderAndDuplicates(t *testing.T) {
	got, _ := ReadList(strings.NewReader("b  \r\n   \na\nb\n  # indented comment\n"))
	if !reflect.DeepEqual(got, []string{"b", "a", "b"}) {
		t.Fatalf("got %v", got)
	}
}

func TestResolveFromStdin(t *testing.T) {
	f := &fakeFinder{}
	r := NewResolver(f)
	got, err := r.Resolve(context.Background(), dispatch.Options{Input: true}, strings.NewReader("x\ny\n"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("got %v", got)
	}
	if f.calls != 0 {
		t.Fatalf("inventory must not be queried in input mode")
	}
}

func TestResolveEmptyStdin(t *testing.T) {
	r := NewResolver(nil)
	_, err := r.Resolve(context.Background(), dispatch.Options{Input: true}, strings.NewReader("# nothing\n\n"))
	var empty *dispatch.EmptyHostSetError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyHostSetError, got %v", err)
	}
}

func TestResolveFromInventory(t *testing.T) {
	f := &fakeFinder{assets: []inventory.Asset{
		{Tag: "t2", Hostname: "web2.example.com"},
		{Tag: "t9"},
		{Tag: "t1", Hostname: "web1.example.com"},
	}}
	r := NewResolver(f)
	got, err := r.Resolve(context.Background(), dispatch.Options{Selector: "Pool:web STATUS:maintenance"}, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"web2.example.com", "web1.example.com"}) {
		t.Fatalf("got %v", got)
	}
	if want := "status:maintenance size:3000 pool:web operation:and"; f.got.String() != want {
		t.Fatalf("selector sent %q, want %q", f.got.String(), want)
	}
}

func TestResolveNoAssets(t *testing.T) {
	r := NewResolver(&fakeFinder{})
	_, err := r.Resolve(context.Background(), dispatch.Options{Selector: "pool:none"}, nil)
	var empty *dispatch.EmptyHostSetError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyHostSetError, got %v", err)
	}
	if !strings.Contains(empty.Selector, "pool:none") {
		t.Fatalf("error should name the selector: %q", empty.Selector)
	}
}

func TestResolveBadSelector(t *testing.T) {
	f := &fakeFinder{}
	_, err := NewResolver(f).Resolve(context.Background(), dispatch.Options{Selector: "justaword"}, nil)
	if dispatch.ExitCode(err) != dispatch.ExitUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("inventory must not be queried on a bad selector")
	}
}

func TestResolveFinderError(t *testing.T) {
	_, err := NewResolver(&fakeFinder{err: errors.New("down")}).Resolve(context.Background(), dispatch.Options{Selector: "a:b"}, nil)
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected wrapped finder error, got %v", err)
	}
}
