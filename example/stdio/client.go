package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/relaykit/mcp"
)

type client struct {
	ctx context.Context
	cli *mcp.Client
}

func newClient(ctx context.Context, transport mcp.ClientTransport) *client {
	cli := mcp.NewClient(mcp.Info{
		Name:    "test-client",
		Version: "1.0",
	}, transport)

	return &client{
		ctx: ctx,
		cli: cli,
	}
}

func (c *client) prompts() bool {
	cursor := ""
	for {
		result, err := c.cli.ListPrompts(c.ctx, mcp.ListPromptsParams{Cursor: cursor})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return true
			}
			fmt.Printf("failed to list prompts: %v\n", err)
			return false
		}

		fmt.Println("List prompts:")
		fmt.Println()
		for _, prompt := range result.Prompts {
			fmt.Printf("%s: %s\n", prompt.Name, prompt.Description)
		}
		fmt.Println()

		askStr := "Type 'n' for next page, "
		if result.NextCursor == "" {
			askStr = "No more pages, type 'n' for start over, "
		}
		askStr += "or type 'm' to go back to main menu, "

		fmt.Printf("%sor type prompt name to choose prompt: ", askStr)

		input, err := waitStdIOInput(c.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return true
			}
			fmt.Print(err)
			break
		}

		if input == "n" {
			cursor = result.NextCursor
			continue
		}
		if input == "m" {
			break
		}

		resultIdx := slices.IndexFunc(result.Prompts, func(p mcp.Prompt) bool {
			return p.Name == input
		})
		if resultIdx == -1 {
			fmt.Printf("prompt not found: %s\n", input)
			continue
		}

		return c.getPrompt(input)
	}

	return false
}

func (c *client) getPrompt(name string) bool {
	result, err := c.cli.GetPrompt(c.ctx, mcp.GetPromptParams{Name: name})
	if err != nil {
		fmt.Printf("failed to get prompt: %v\n", err)
		return false
	}

	fmt.Println()
	fmt.Println("Prompt:")
	fmt.Printf("Description: %s\n", result.Description)
	for _, msg := range result.Messages {
		fmt.Printf("%s: %s\n", msg.Role, msg.Content.Text)
	}
	fmt.Println()

	return false
}
