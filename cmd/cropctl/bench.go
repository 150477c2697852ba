package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/cropadvisor/internal/domain"
)

//nolint:gochecknoglobals // Cobra boilerplate
var benchFlags struct {
	csvPath string
	baseURL string
	workers int
	limit   int
	timeout time.Duration
}

//nolint:gochecknoglobals // Cobra boilerplate
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Replay field scenarios against a running server",
	Long: `Reads field scenarios from a CSV file, sends each one to POST /recommend
with a pool of concurrent workers and reports throughput, latency and how
often the expected crop was ranked first.

CSV columns (header required, case-insensitive, any order):
  soil_type, water_avail, season, budget, land_size, sowing_date,
  temperature, preferred_crops (separated by ';'), expected

Empty cells are omitted from the request so server defaults apply.
Rows without an expected crop count towards latency only.

Examples:
  cropctl bench --csv scenarios.csv --url http://localhost:5001 --workers 20`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(benchCmd)

	f := benchCmd.Flags()
	f.StringVar(&benchFlags.csvPath, "csv", "", "Path to scenario CSV file")
	f.StringVar(&benchFlags.baseURL, "url", "http://localhost:5001", "cropadvisor base URL")
	f.IntVar(&benchFlags.workers, "workers", 10, "Number of concurrent workers")
	f.IntVar(&benchFlags.limit, "limit", 0, "Maximum scenarios to send (0 = all)")
	f.DurationVar(&benchFlags.timeout, "timeout", 10*time.Second, "Per-request timeout")
	_ = benchCmd.MarkFlagRequired("csv")
}

// Scenario is one field description replayed against the server.
type Scenario struct {
	Row      int
	Request  benchRequest
	Expected string
}

// benchRequest mirrors the POST /recommend body; nil fields are omitted.
type benchRequest struct {
	LandSize       *float64 `json:"land_size,omitempty"`
	SoilType       string   `json:"soil_type,omitempty"`
	WaterAvail     string   `json:"water_avail,omitempty"`
	Season         string   `json:"season,omitempty"`
	Budget         *float64 `json:"budget,omitempty"`
	PreferredCrops []string `json:"preferred_crops,omitempty"`
	SowingDate     string   `json:"sowing_date,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
}

// BenchMetrics tracks benchmark results.
type BenchMetrics struct {
	TotalProcessed int64
	TotalErrors    int64

	// Labelled scenarios whose expected crop was ranked first, or not.
	Hits   int64
	Misses int64

	// Responses with no qualifying crop.
	Empty int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *BenchMetrics) observe(d time.Duration) {
	m.mu.Lock()
	m.latencies = append(m.latencies, d)
	m.mu.Unlock()
}

// Percentile returns the p-th latency percentile (0 < p <= 100).
func (m *BenchMetrics) Percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted))*p/100+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func runBench(cmd *cobra.Command, args []string) (err error) {
	baseURL := strings.TrimRight(benchFlags.baseURL, "/")

	fmt.Println("+---------------------------------------------------------------+")
	fmt.Println("|            CROPADVISOR BENCHMARK - Field scenarios            |")
	fmt.Println("+---------------------------------------------------------------+")
	fmt.Printf("\nCSV File:    %s\n", benchFlags.csvPath)
	fmt.Printf("Server URL:  %s\n", baseURL)
	fmt.Printf("Workers:     %d\n", benchFlags.workers)
	fmt.Printf("Limit:       %d\n", benchFlags.limit)
	fmt.Println()

	client := &http.Client{Timeout: benchFlags.timeout}

	err = checkHealth(client, baseURL)
	if err != nil {
		err = errors.Wrapf(err, "cropadvisor not reachable at %s", baseURL)
		return err
	}
	fmt.Println("OK server is healthy")

	var file *os.File
	file, err = os.Open(benchFlags.csvPath)
	if err != nil {
		err = errors.Wrap(err, "failed to open scenarios")
		return err
	}
	defer file.Close()

	var scenarios []Scenario
	scenarios, err = readScenarios(file, benchFlags.limit)
	if err != nil {
		err = errors.Wrap(err, "failed to read scenarios")
		return err
	}
	fmt.Printf("OK loaded %d scenarios\n", len(scenarios))

	fmt.Printf("\nRunning benchmark with %d workers...\n", benchFlags.workers)
	start := time.Now()
	metrics := runScenarios(client, baseURL, scenarios, benchFlags.workers)
	printBenchResults(metrics, time.Since(start))
	return err
}

func checkHealth(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// readScenarios parses the scenario CSV. Malformed numeric cells fail the
// whole read with the offending row number.
func readScenarios(r io.Reader, limit int) ([]Scenario, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var scenarios []Scenario
	row := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		cell := func(name string) string {
			i, ok := colIndex[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		s := Scenario{
			Row: row,
			Request: benchRequest{
				SoilType:   cell("soil_type"),
				WaterAvail: cell("water_avail"),
				Season:     cell("season"),
				SowingDate: cell("sowing_date"),
			},
			Expected: cell("expected"),
		}

		for name, dst := range map[string]**float64{
			"land_size":   &s.Request.LandSize,
			"budget":      &s.Request.Budget,
			"temperature": &s.Request.Temperature,
		} {
			v := cell(name)
			if v == "" {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid %s %q", row, name, v)
			}
			*dst = &f
		}

		if prefs := cell("preferred_crops"); prefs != "" {
			for _, p := range strings.Split(prefs, ";") {
				if p = strings.TrimSpace(p); p != "" {
					s.Request.PreferredCrops = append(s.Request.PreferredCrops, p)
				}
			}
		}

		scenarios = append(scenarios, s)

		if limit > 0 && len(scenarios) >= limit {
			break
		}
	}

	return scenarios, nil
}

func runScenarios(client *http.Client, baseURL string, scenarios []Scenario, numWorkers int) *BenchMetrics {
	metrics := &BenchMetrics{}
	if numWorkers < 1 {
		numWorkers = 1
	}

	work := make(chan Scenario, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for s := range work {
				start := time.Now()
				result, err := recommend(client, baseURL, s.Request)
				metrics.observe(time.Since(start))
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR row %d -> %v\n", s.Row, err)
					}
					continue
				}

				top := ""
				if len(result.Crops) == 0 {
					atomic.AddInt64(&metrics.Empty, 1)
				} else {
					top = result.Crops[0].Name
				}

				if s.Expected != "" {
					if strings.EqualFold(top, s.Expected) {
						atomic.AddInt64(&metrics.Hits, 1)
					} else {
						atomic.AddInt64(&metrics.Misses, 1)
					}
				}

				if verbose {
					fmt.Printf("row %-5d | %-8s %-6s %-7s | top: %-12s | expected: %s\n",
						s.Row, s.Request.SoilType, s.Request.WaterAvail, s.Request.Season, top, s.Expected)
				}
			}
		}()
	}

	for _, s := range scenarios {
		work <- s
	}
	close(work)

	wg.Wait()

	return metrics
}

func recommend(client *http.Client, baseURL string, req benchRequest) (*domain.RecommendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/recommend", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result domain.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func printBenchResults(m *BenchMetrics, duration time.Duration) {
	fmt.Println("\n+---------------------------------------------------------------+")
	fmt.Println("|                       BENCHMARK RESULTS                       |")
	fmt.Println("+---------------------------------------------------------------+")

	fmt.Printf("\nREQUESTS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)
	fmt.Printf("   Empty Results:    %d\n", m.Empty)

	labelled := m.Hits + m.Misses
	if labelled > 0 {
		fmt.Printf("\nRANKING\n")
		fmt.Printf("   Labelled:         %d\n", labelled)
		fmt.Printf("   Top-1 Hits:       %d\n", m.Hits)
		fmt.Printf("   Top-1 Accuracy:   %.2f%%\n", 100*float64(m.Hits)/float64(labelled))
	}

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Duration:         %s\n", duration.Round(time.Millisecond))
	if duration > 0 {
		fmt.Printf("   Throughput:       %.1f req/s\n", float64(m.TotalProcessed)/duration.Seconds())
	}
	fmt.Printf("   Latency p50:      %s\n", m.Percentile(50))
	fmt.Printf("   Latency p95:      %s\n", m.Percentile(95))
	fmt.Printf("   Latency p99:      %s\n", m.Percentile(99))
	fmt.Println()
}
