// build.go — the one-shot `build` subcommand (spec.md §6.3): navigate (or
// fetch, with --offline) one URL, run the full page-map pipeline, and print
// or write the result in the requested format. Grounded on the teacher's
// habit of a single-purpose cmd/ entry that wires one pipeline straight to
// stdout/a file, without going through the MCP dispatch layer at all.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/retio-ai/pagemap/internal/browserpool"
	"github.com/retio-ai/pagemap/internal/pagemap"
	"github.com/retio-ai/pagemap/internal/pagemodel"
	"github.com/retio-ai/pagemap/internal/urlsafety"
)

func newBuildCmd() *cobra.Command {
	var (
		url      string
		format   string
		output   string
		offline  bool
		allowLoc bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a page map for a single URL and print or save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				return newUserError("build: --url is required")
			}
			switch format {
			case "json", "text", "markdown":
			default:
				return newUserError("build: --format must be json, text, or markdown")
			}
			if err := urlsafety.ValidateURL(url, allowLoc); err != nil {
				return newUserError("build: %s", err.Error())
			}

			pm, err := runBuild(cmd.Context(), url, offline, allowLoc)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}

			rendered, err := renderPageMap(pm, format)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}

			if output != "" {
				return os.WriteFile(output, []byte(rendered), 0o644)
			}
			fmt.Println(rendered)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "URL to build a page map for")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, text, or markdown")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file instead of stdout")
	cmd.Flags().BoolVar(&offline, "offline", false, "fetch HTML with a plain HTTP GET instead of driving a browser")
	cmd.Flags().BoolVar(&allowLoc, "allow-local", false, "permit navigation to private/loopback addresses")
	return cmd
}

func runBuild(ctx context.Context, url string, offline, allowLocal bool) (pagemodel.PageMap, error) {
	if offline {
		return buildOfflineFromURL(ctx, url)
	}

	pool := browserpool.New(browserpool.Config{
		Headless:             true,
		AllowLocalNavigation: allowLocal,
	})
	defer pool.Close()

	sess, err := pool.Acquire(ctx)
	if err != nil {
		return pagemodel.PageMap{}, err
	}
	defer pool.Release(sess)

	return pagemap.BuildLive(ctx, sess, url, pagemap.Options{})
}

func buildOfflineFromURL(ctx context.Context, url string) (pagemodel.PageMap, error) {
	client := &http.Client{Timeout: 20 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pagemodel.PageMap{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return pagemodel.PageMap{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return pagemodel.PageMap{}, err
	}
	return pagemap.BuildOffline(string(body), url, "")
}

func renderPageMap(pm pagemodel.PageMap, format string) (string, error) {
	switch format {
	case "json":
		b, err := json.MarshalIndent(pm, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	case "markdown":
		return renderMarkdown(pm), nil
	default:
		return renderText(pm), nil
	}
}

func renderMarkdown(pm pagemodel.PageMap) string {
	out := fmt.Sprintf("# %s\n\n%s\n\n## Interactables\n\n", pm.Title, pm.URL)
	for _, ia := range pm.Interactables {
		out += fmt.Sprintf("- [%d] %s %q (%s)\n", ia.Ref, ia.Role, ia.Name, ia.Affordance)
	}
	out += "\n## Content\n\n" + pm.PrunedContext
	return out
}

func renderText(pm pagemodel.PageMap) string {
	out := fmt.Sprintf("%s\n%s\n\n", pm.Title, pm.URL)
	for _, ia := range pm.Interactables {
		out += fmt.Sprintf("[%d] %s %q\n", ia.Ref, ia.Role, ia.Name)
	}
	out += "\n" + pm.PrunedContext
	return out
}
