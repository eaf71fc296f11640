package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/hamed0406/endpointresolver/internal/candidates"
	"github.com/hamed0406/endpointresolver/internal/config"
	"github.com/hamed0406/endpointresolver/internal/logging"
	"github.com/hamed0406/endpointresolver/internal/probe"
	"github.com/hamed0406/endpointresolver/internal/request"
	"github.com/hamed0406/endpointresolver/internal/resolver"
)

func main() {
	list := flag.Bool("list", false, "probe every candidate and print a table")
	get := flag.String("get", "", "send a GET for this path through the resolved backend")
	verbose := flag.Bool("v", false, "debug logging to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.FromEnv()
	logger := logging.NewConsoleLogger(*verbose)
	defer logger.Sync()

	src := candidates.NewSource(cfg.CandidateEnv(), candidates.DetectorFunc(candidates.DetectLocalIP), logger)
	src.NgrokAPI = cfg.NgrokAPI
	prober := cfg.Prober()

	if *list {
		results := probe.ProbeAll(ctx, prober, src.Candidates(ctx), cfg.ScanConcurrency)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRIO\tSOURCE\tURL\tUP\tSTATUS\tMS\tERROR")
		for _, r := range results {
			status := "-"
			if r.HTTPStatus != nil {
				status = fmt.Sprint(*r.HTTPStatus)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%.0f\t%s\n",
				r.Candidate.Priority, r.Candidate.Source, r.Candidate.URL, r.Reachable, status, r.ElapsedMS, r.Error)
		}
		w.Flush()
		return
	}

	opts := cfg.ResolverOptions()
	res := resolver.New(src, prober, logger, opts)

	if *get != "" {
		client := request.New(res, logger, cfg.RequestTimeout)
		client.MaxRetries = cfg.RetryAttempts
		client.RetryDelay = cfg.RetryBackoff
		resp, err := client.Do(ctx, *get, request.Options{})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Request failed:", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		fmt.Fprintln(os.Stderr, resp.Status)
		io.Copy(os.Stdout, resp.Body)
		return
	}

	ep, err := res.Resolve(ctx, true)
	if err != nil {
		var ex *resolver.ExhaustedError
		if errors.As(err, &ex) && ex.Degraded != nil {
			fmt.Printf("No candidate answered (%d probed). Degraded fallback: %s (%s)\n", ex.Probed, ex.Degraded.BaseURL, ex.Degraded.Label)
		} else {
			fmt.Println("No backend reachable:", err)
		}
		os.Exit(1)
	}
	fmt.Printf("Backend: %s (%s, source=%s)\n", ep.BaseURL, ep.Label, ep.Source)
}
