package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// apiCall issues one REST GET against the host and prints the decoded body
// as JSON on standard output: exit 0 on a 2xx response, non-zero otherwise.
func (a *app) apiCall(ctx context.Context, args []string, params paramFlags) error {
	if len(args) == 0 {
		return fmt.Errorf("api requires an ENDPOINT argument")
	}
	endpoint := args[0]

	resp, err := a.client.Get(ctx, endpoint, params)
	if err != nil {
		return fmt.Errorf("api %s: %w", endpoint, err)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return fmt.Errorf("api %s: host returned status %d: %s", endpoint, resp.Status, string(resp.Body))
	}

	var pretty any
	if err := json.Unmarshal(resp.Body, &pretty); err != nil {
		// Not every endpoint returns an object/array at the top level;
		// fall back to printing the raw bytes rather than failing the call.
		os.Stdout.Write(resp.Body)
		fmt.Println()
		return nil
	}
	encoded, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return fmt.Errorf("api %s: re-encoding response: %w", endpoint, err)
	}
	fmt.Println(string(encoded))
	return nil
}
