package mongolink_test

import (
	"context"
	"fmt"
	"log"

	"github.com/sagarc03/mongolink"
	"github.com/sagarc03/mongolink/driver/memory"
	"github.com/sagarc03/mongolink/settings"
)

func ExampleManager_Create() {
	ctx := context.Background()

	m, err := mongolink.NewManager(memory.NewDriver())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = m.Close(ctx) }()

	handles, err := m.Create(ctx, map[string]any{
		"MONGODB_SETTINGS": []any{
			map[string]any{"alias": "orders", "host": "db.internal", "db": "orders"},
			map[string]any{"alias": "billing", "host": "db.internal", "db": "billing"},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(handles["orders"].Name(), handles["billing"].Name())
	for _, s := range m.Status() {
		fmt.Printf("%s shared=%t\n", s.Alias, s.Shared)
	}
	// Output:
	// orders billing
	// billing shared=true
	// orders shared=true
}

func ExampleManager_Get() {
	ctx := context.Background()

	m, err := mongolink.NewManager(memory.NewDriver(),
		mongolink.WithAppConfig(map[string]any{"TESTING": true}))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = m.Close(ctx) }()

	d, err := settings.Resolve(map[string]any{
		"alias": "unit",
		"host":  "mongomock://localhost",
		"db":    "fixtures",
	})
	if err != nil {
		log.Fatal(err)
	}
	m.Registry().Define(d)

	h, err := m.Get(ctx, "unit")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(h.Alias(), h.Name())
	// Output: unit fixtures
}
