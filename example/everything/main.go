package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/relaykit/mcp"
	"github.com/relaykit/mcp/servers/everything"
)

var port = "8080"

func main() {
	everythingServer := everything.NewServer()

	transport := mcp.NewSSEServer(fmt.Sprintf("%s/message", baseURL()))

	srv := mcp.NewServer(mcp.Info{
		Name:    "everything",
		Version: "1.0",
	}, transport,
		mcp.WithServerPingInterval(30*time.Second),
		mcp.WithResourceServer(everythingServer),
		mcp.WithResourceSubscriptionHandler(everythingServer),
		mcp.WithToolServer(everythingServer),
		mcp.WithLogHandler(everythingServer),
	)

	mux := http.NewServeMux()
	mux.Handle("/sse", transport.HandleSSE())
	mux.Handle("/message", transport.HandleMessage())

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go srv.Serve()

	go func() {
		fmt.Printf("Server starting on %s\n", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for the server to start
	time.Sleep(time.Second)
	fmt.Println("Server started")

	cli := newClient()
	go func() {
		cli.run()
	}()

	<-cli.done

	fmt.Println("Client requested shutdown...")
	fmt.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	everythingServer.Close()

	if err := srv.Shutdown(ctx); err != nil {
		fmt.Printf("MCP server forced to shutdown: %v\n", err)
	}
	if err := httpSrv.Shutdown(ctx); err != nil {
		fmt.Printf("Server forced to shutdown: %v\n", err)
		return
	}

	fmt.Println("Server exited gracefully")
}

func baseURL() string {
	return fmt.Sprintf("http://localhost:%s", port)
}
