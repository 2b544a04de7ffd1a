package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sanity-io/litter"

	"github.com/kevinxiao27/multiselect/dc"
	"github.com/kevinxiao27/multiselect/multiselect"
)

type printer struct{}

func (printer) Apply(b dc.Batch) error {
	fmt.Println("batch:", litter.Sdump(b))
	return nil
}

func (printer) SetSelectedItems(items []dc.Item) error {
	fmt.Println("selected:", litter.Sdump(items))
	return nil
}

func main() {
	litter.Config.HidePrivateFields = false
	ctx := context.Background()

	items := make([]string, 120)
	for i := range items {
		items[i] = fmt.Sprintf("item %d", i)
	}

	m, err := multiselect.New[string](printer{}, multiselect.WithPageSize[string](10))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	m.AddValueChangeListener(func(ev multiselect.ValueChangeEvent[string]) {
		fmt.Printf("value: %v -> %v (client=%t)\n", ev.OldValue, ev.Value, ev.FromClient)
	})

	steps := []func() error{
		func() error { return m.SetItems(ctx, items...) },
		func() error { return m.RequestRange(50, 5, "") },
		func() error { return m.Flush(ctx) },
		func() error { return m.SetValue("item 51", "item 7") },
		func() error { return m.RequestRange(0, 5, "item 1") },
		func() error { return m.Flush(ctx) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	fmt.Println("value:", m.Value())
}
