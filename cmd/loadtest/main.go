// Command loadtest sends concurrent prediction requests to a running
// gateway and reports acceptance rate and latency.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8000 -requests 100 -concurrency 10
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"
)

var sampleTexts = []string{
	"This product is absolutely amazing! Best purchase I've ever made.",
	"Terrible experience. The item broke after one day of use.",
	"It's okay, nothing special but does the job.",
	"I love this so much, highly recommend to everyone!",
	"Worst customer service I've ever dealt with. Never again.",
	"Pretty good value for the price. Satisfied with my purchase.",
	"The quality is outstanding. Exceeded all my expectations.",
	"Complete waste of money. Do not buy this product.",
	"Decent product with some minor flaws. Would consider buying again.",
	"Absolutely horrible. Arrived damaged and smelled terrible.",
}

type outcome struct {
	status  int
	elapsed time.Duration
}

func main() {
	url := flag.String("url", "http://localhost:8000", "gateway base URL")
	requests := flag.Int("requests", 100, "total requests to send")
	concurrency := flag.Int("concurrency", 10, "maximum in-flight requests")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	sem := make(chan struct{}, *concurrency)
	outcomes := make([]outcome, *requests)

	fmt.Printf("Sending %d requests to %s (concurrency=%d)\n", *requests, *url, *concurrency)
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = send(client, *url)
		}(i)
	}
	wg.Wait()
	total := time.Since(start)

	var ok int
	latencies := make([]time.Duration, 0, *requests)
	for _, o := range outcomes {
		if o.status == http.StatusAccepted {
			ok++
			latencies = append(latencies, o.elapsed)
		}
	}
	fmt.Printf("\nResults (%.2fs total):\n", total.Seconds())
	fmt.Printf("  Accepted: %d/%d\n", ok, *requests)
	fmt.Printf("  Failed:   %d/%d\n", *requests-ok, *requests)
	if len(latencies) > 0 {
		sort.Slice(latencies, func(a, b int) bool { return latencies[a] < latencies[b] })
		fmt.Printf("  p50: %s  p95: %s  max: %s\n",
			latencies[len(latencies)/2],
			latencies[len(latencies)*95/100],
			latencies[len(latencies)-1],
		)
	}
	if ok < *requests {
		os.Exit(1)
	}
}

func send(client *http.Client, baseURL string) outcome {
	body, _ := json.Marshal(map[string]string{
		"text": sampleTexts[rand.Intn(len(sampleTexts))],
	})
	start := time.Now()
	resp, err := client.Post(baseURL+"/predict", "application/json", bytes.NewReader(body))
	if err != nil {
		return outcome{status: 0, elapsed: time.Since(start)}
	}
	defer resp.Body.Close()
	return outcome{status: resp.StatusCode, elapsed: time.Since(start)}
}
