// Command abedemo wires the core pieces of this module together: an
// allocator-backed Buffer for producing a small encoded payload, a
// Looper dispatching timed and immediate Jobs, and a DispatchQueue
// layered over it, shutting down cleanly on SIGINT via MainLooper.
package main

import (
	"fmt"
	"time"

	"github.com/joeycumines/abe/abuffer"
	"github.com/joeycumines/abe/allocator"
	"github.com/joeycumines/abe/job"
	"github.com/joeycumines/abe/looper"
)

func main() {
	alloc := allocator.NewDefault()

	buf, err := abuffer.New(alloc, 64, abuffer.Linear)
	if err != nil {
		panic(err)
	}
	defer buf.Close()

	buf.WriteUint32BE(0xABE00001)
	buf.WriteBits(0b101, 3)
	buf.WriteBits(0xFF, 8)
	buf.Flush()
	fmt.Printf("payload: %d bytes written, %d capacity\n", buf.WritePos(), buf.Capacity())

	l := looper.New(looper.WithName("abedemo-worker"), looper.WithThreadType(looper.ThreadNormal))
	l.Start()
	defer l.RequestExit(true)

	dq := looper.NewDispatchQueue(l)
	defer dq.Close()

	tick := job.New(func() {
		fmt.Println("periodic tick")
	})
	tick.Bind(dq)

	report := job.New(func() {
		fmt.Printf("looper stats: %+v\n", l.Stats())
	})
	report.Bind(l)

	for i := 0; i < 3; i++ {
		tick.Run(0)
	}
	report.Run(200_000) // 200ms

	ml := looper.MainLooper()
	go func() {
		time.Sleep(500 * time.Millisecond)
		ml.Terminate(false)
	}()
	ml.Loop()

	fmt.Println("shutting down")
}
