package commands

import (
	"context"
	"errors"
	"testing"

	"todosync/internal/service"
	"todosync/internal/testutil"
)

func TestParseTaskRef(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    TaskRef
		wantErr string
	}{
		{name: "numeric", args: []string{"5"}, want: TaskRef{TaskNum: 5}},
		{name: "combined", args: []string{"a1"}, want: TaskRef{Letter: 'a', TaskNum: 1, HasLetter: true}},
		{name: "combined multi digit", args: []string{"b12"}, want: TaskRef{Letter: 'b', TaskNum: 12, HasLetter: true}},
		{name: "separated", args: []string{"c", "3"}, want: TaskRef{Letter: 'c', TaskNum: 3, HasLetter: true}},
		{name: "empty", args: nil, wantErr: "item reference required"},
		{name: "lone letter", args: []string{"a"}, wantErr: "item reference required"},
		{name: "letter then word", args: []string{"a", "x"}, wantErr: "invalid item reference: a"},
		{name: "uppercase", args: []string{"A1"}, wantErr: "invalid item reference: A1"},
		{name: "negative", args: []string{"-1"}, wantErr: "invalid item reference: -1"},
		{name: "word", args: []string{"milk"}, wantErr: "invalid item reference: milk"},
		{name: "non ascii digits", args: []string{"١٢"}, wantErr: "invalid item reference: ١٢"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskRef(tt.args)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("expected error %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveListByLetter_SkipsListsWithoutOpenItems(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddList("Empty")
	svc.AddList("Groceries", "milk")
	done := svc.AddList("Done", "old")
	svc.CompleteAllNow(done.ID)
	svc.AddList("Trip", "pack")

	ctx := context.Background()
	list, err := ResolveListByLetter(ctx, svc, 'a')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Name != "Groceries" {
		t.Errorf("expected Groceries for a, got %q", list.Name)
	}

	list, err = ResolveListByLetter(ctx, svc, 'b')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Name != "Trip" {
		t.Errorf("expected Trip for b, got %q", list.Name)
	}

	_, err = ResolveListByLetter(ctx, svc, 'c')
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
