// Package host is the untrusted side: it launches an enclave, owns the host
// heap, and marshals values in and out of the enclave's call surface.
//
// # Quick Start
//
//	h, err := host.Launch(ctx, &host.Config{Simulation: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close(ctx)
//
//	sum, err := h.Client().Add(ctx, big.NewInt(123), big.NewInt(456))
//	fmt.Println(sum) // 579
//
// # Caller discipline
//
// Every enclave call returns a result length. The client treats 0 as
// failure, allocates length+1 bytes in host memory, fetches into that
// buffer, and only then decodes. Host buffers are released on every path.
//
// # Concurrency
//
// A Client is bound to one enclave context and must not be shared between
// goroutines. Use NewClient or Parallel to get one context per worker.
package host
