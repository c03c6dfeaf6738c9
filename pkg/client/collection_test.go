package client

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

type record struct {
	ID   string
	Name string
}

func recordID(r record) string { return r.ID }

func seeded(n int) *Collection[record] {
	c := NewCollection(recordID)
	items := make([]record, n)
	for i := range items {
		items[i] = record{ID: "r" + strconv.Itoa(i), Name: "item " + strconv.Itoa(i)}
	}
	c.Replace(items)
	return c
}

func assertOrder(t *testing.T, c *Collection[record], want []string) {
	t.Helper()
	items := c.Items()
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, items[i].ID, id)
		}
	}
}

func TestInsertReconcilesTempID(t *testing.T) {
	c := seeded(2)
	temp := record{ID: TempID(), Name: "new"}

	created, err := c.Insert(context.Background(), temp, func(context.Context) (record, error) {
		return record{ID: "server-1", Name: "new"}, nil
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if created.ID != "server-1" {
		t.Errorf("got id %s, want server-1", created.ID)
	}

	assertOrder(t, c, []string{"r0", "r1", "server-1"})
	if _, ok := c.Get(temp.ID); ok {
		t.Error("temp id still present after reconciliation")
	}
}

func TestInsertRollbackRestoresExactList(t *testing.T) {
	c := seeded(3)
	before := c.Items()

	_, err := c.Insert(context.Background(), record{ID: TempID()}, func(context.Context) (record, error) {
		return record{}, errors.New("plan limit reached")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	after := c.Items()
	if len(after) != len(before) {
		t.Fatalf("got %d items after rollback, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("position %d changed: got %+v, want %+v", i, after[i], before[i])
		}
	}
}

func TestUpdateRollbackRestoresOriginal(t *testing.T) {
	c := seeded(3)

	_, err := c.Update(context.Background(), "r1",
		func(r record) record { r.Name = "edited"; return r },
		func(context.Context) (record, error) {
			return record{}, errors.New("boom")
		})
	if err == nil {
		t.Fatal("expected error")
	}

	got, _ := c.Get("r1")
	if got.Name != "item 1" {
		t.Errorf("got name %q after rollback, want %q", got.Name, "item 1")
	}
	assertOrder(t, c, []string{"r0", "r1", "r2"})
}

func TestUpdateAppliesServerVersion(t *testing.T) {
	c := seeded(2)

	updated, err := c.Update(context.Background(), "r0",
		func(r record) record { r.Name = "guess"; return r },
		func(context.Context) (record, error) {
			return record{ID: "r0", Name: "server truth"}, nil
		})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "server truth" {
		t.Errorf("got %q, want server version", updated.Name)
	}
	got, _ := c.Get("r0")
	if got.Name != "server truth" {
		t.Errorf("collection holds %q, want server version", got.Name)
	}
}

func TestDeleteRollbackRestoresPosition(t *testing.T) {
	c := seeded(4)

	err := c.Delete(context.Background(), "r1", func(context.Context) error {
		return errors.New("network down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	assertOrder(t, c, []string{"r0", "r1", "r2", "r3"})
}

func TestDeleteRemovesOnSuccess(t *testing.T) {
	c := seeded(3)

	if err := c.Delete(context.Background(), "r1", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	assertOrder(t, c, []string{"r0", "r2"})
}

func TestReorderPermutesAndRollsBack(t *testing.T) {
	c := seeded(3)

	if err := c.Reorder(context.Background(), []string{"r2", "r0", "r1"}, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("reorder failed: %v", err)
	}
	assertOrder(t, c, []string{"r2", "r0", "r1"})

	err := c.Reorder(context.Background(), []string{"r1", "r0", "r2"}, func(context.Context) error {
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	assertOrder(t, c, []string{"r2", "r0", "r1"})
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	c := seeded(3)

	cases := [][]string{
		{"r0", "r1"},                 // too short
		{"r0", "r1", "r2", "r0"},     // too long
		{"r0", "r0", "r1"},           // duplicate
		{"r0", "r1", "nonexistent"},  // unknown id
	}
	for _, ids := range cases {
		if err := c.Reorder(context.Background(), ids, func(context.Context) error { return nil }); err == nil {
			t.Errorf("reorder %v: expected rejection", ids)
		}
		assertOrder(t, c, []string{"r0", "r1", "r2"})
	}
}

func TestTempID(t *testing.T) {
	id := TempID()
	if !IsTempID(id) {
		t.Errorf("TempID() = %q not recognized by IsTempID", id)
	}
	if IsTempID("r1") {
		t.Error("IsTempID accepted a real id")
	}
}
