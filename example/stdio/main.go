package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/relaykit/mcp"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srvReader, srvWriter := io.Pipe()
	cliReader, cliWriter := io.Pipe()

	// server's output is client's input
	srvTransport := mcp.NewStdIO(srvReader, cliWriter)
	// client's output is server's input
	cliTransport := mcp.NewStdIO(cliReader, srvWriter)

	srv := mcp.NewServer(mcp.Info{
		Name:    "test-server",
		Version: "1.0",
	}, srvTransport, mcp.WithPromptServer(server{}))

	go srv.Serve()

	c := newClient(ctx, cliTransport)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("Exiting...")
		cancel()
	}()

	ready := make(chan struct{})
	go func() {
		if err := c.cli.Connect(ctx, ready); err != nil {
			fmt.Println(err)
		}
	}()
	<-ready

	for {
		fmt.Println("Choose commands number:")
		cmds := []string{"prompts", "exit"}
		for i, cmd := range cmds {
			fmt.Printf("%d. %s\n", i+1, cmd)
		}

		input, err := waitStdIOInput(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Print(err)
			continue
		}
		inputNumber, err := strconv.Atoi(input)
		if err != nil {
			fmt.Printf("Invalid input: %s\n", input)
			continue
		}
		inputIdx := inputNumber - 1
		if inputIdx < 0 || inputIdx >= len(cmds) {
			fmt.Printf("Invalid input: %s\n", input)
			continue
		}

		exit := false
		switch cmds[inputIdx] {
		case "prompts":
			exit = c.prompts()
		case "exit":
			exit = true
		}

		if exit {
			fmt.Println("Exiting...")
			return
		}
	}
}

func waitStdIOInput(ctx context.Context) (string, error) {
	inputChan := make(chan string)
	errsChan := make(chan error)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			inputChan <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			errsChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errsChan:
		return "", err
	case input := <-inputChan:
		return input, nil
	}
}
