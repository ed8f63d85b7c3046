package sched_test

import (
	"context"
	"fmt"

	"github.com/ygrebnov/fibers"
	"github.com/ygrebnov/fibers/sched"
)

// ExampleGroup runs three fibers contending for one fibers.Mutex on a single
// worker. Ownership is handed to waiters in arrival order.
func ExampleGroup() {
	ctx := context.Background()
	g, _ := sched.New(sched.WithWorkers(1))

	var mu fibers.Mutex
	for i := range 3 {
		_, _ = g.Spawn(func(f *sched.Fiber) {
			_ = mu.Lock(f)
			fmt.Println("fiber", i, "holds the lock")
			f.Yield()
			_ = mu.Unlock(f)
		})
	}

	g.Start(ctx)
	_ = g.Close(ctx)

	// Output:
	// fiber 0 holds the lock
	// fiber 1 holds the lock
	// fiber 2 holds the lock
}

// ExampleFiber_Spawn starts a child fiber from inside a running fiber.
func ExampleFiber_Spawn() {
	ctx := context.Background()
	g, _ := sched.New(sched.WithWorkers(2))
	g.Start(ctx)

	parent, _ := g.Spawn(func(f *sched.Fiber) {
		child, _ := f.Spawn(func(*sched.Fiber) { fmt.Println("child") })
		for {
			select {
			case <-child.Done():
				fmt.Println("parent")
				return
			default:
				f.Yield()
			}
		}
	})
	<-parent.Done()
	_ = g.Close(ctx)

	// Output:
	// child
	// parent
}
