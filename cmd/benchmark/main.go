// Benchmark tool for testing LinkGuard against labeled URL datasets.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/urls.csv -url http://localhost:8080
//
// This tool:
//   1. Reads a labeled URL dataset (CSV with url + phishing label columns)
//   2. Sends each URL to LinkGuard for analysis
//   3. Compares the predicted tier against the actual label
//   4. Calculates precision, recall, F1-score, and confusion matrix
//
// A PhishTank export merged with a Tranco sample works well as input. Any CSV
// with "url" and "label" columns is accepted; labels "1", "phishing", "phish",
// and "malicious" count as positive.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LabeledURL represents one row from the dataset
type LabeledURL struct {
	URL        string
	IsPhishing bool
}

// AnalyzeRequest is the LinkGuard API request format
type AnalyzeRequest struct {
	URL  string `json:"url"`
	Mode string `json:"mode,omitempty"`
}

// AnalyzeResponse is the subset of the LinkGuard API response the benchmark
// needs
type AnalyzeResponse struct {
	ID         string  `json:"id"`
	Score      int     `json:"score"`
	RiskLevel  string  `json:"riskLevel"`
	ModelUsed  string  `json:"modelUsed"`
	DurationMs int64   `json:"durationMs"`
	Prob       float64 `json:"probability"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64 // Phishing scored at or above the alert threshold
	FalsePositives int64 // Benign scored at or above the alert threshold
	TrueNegatives  int64 // Benign scored below the alert threshold
	FalseNegatives int64 // Phishing scored below the threshold (missed!)

	TotalProcessed int64
	TotalPhishing  int64
	TotalBenign    int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to labeled URL CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "LinkGuard base URL")
	mode := flag.String("mode", "offline", `analysis mode: "offline", "online", or "auto"`)
	threshold := flag.Int("threshold", 31, "minimum score counted as a phishing prediction")
	limit := flag.Int("limit", 10000, "Maximum URLs to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	phishOnly := flag.Bool("phish-only", false, "Only test phishing URLs")
	sampleRate := flag.Float64("sample", 1.0, "Sample rate for benign URLs (0.0-1.0)")
	verbose := flag.Bool("verbose", false, "Print each URL result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/urls.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║         LINKGUARD BENCHMARK - Phishing URL Detection          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:      %s\n", *csvPath)
	fmt.Printf("LinkGuard URL: %s\n", *baseURL)
	fmt.Printf("Mode:          %s\n", *mode)
	fmt.Printf("Threshold:     %d\n", *threshold)
	fmt.Printf("Workers:       %d\n", *workers)
	fmt.Printf("Limit:         %d\n", *limit)
	fmt.Printf("Phish Only:    %v\n", *phishOnly)
	fmt.Printf("Sample Rate:   %.2f\n", *sampleRate)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: LinkGuard not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure LinkGuard is running:")
		fmt.Println("  go run ./cmd/linkguard serve")
		os.Exit(1)
	}
	fmt.Println("✓ LinkGuard is healthy")

	fmt.Printf("\nReading dataset from %s...\n", *csvPath)
	urls, err := readDatasetCSV(*csvPath, *limit, *phishOnly, *sampleRate)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d URLs\n", len(urls))

	phishCount := 0
	for _, u := range urls {
		if u.IsPhishing {
			phishCount++
		}
	}
	fmt.Printf("  - Phishing: %d (%.2f%%)\n", phishCount, 100*float64(phishCount)/float64(len(urls)))
	fmt.Printf("  - Benign:   %d (%.2f%%)\n", len(urls)-phishCount, 100*float64(len(urls)-phishCount)/float64(len(urls)))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(urls, *baseURL, *mode, *threshold, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func positiveLabel(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "phishing", "phish", "malicious", "bad":
		return true
	}
	return false
}

func readDatasetCSV(path string, limit int, phishOnly bool, sampleRate float64) ([]LabeledURL, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	urlCol, labelCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "url":
			urlCol = i
		case "label", "is_phishing", "phishing", "status":
			labelCol = i
		}
	}
	if urlCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("CSV must have url and label columns, got %v", header)
	}

	var urls []LabeledURL
	sampleCounter := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}
		if len(record) <= urlCol || len(record) <= labelCol {
			continue
		}

		isPhishing := positiveLabel(record[labelCol])

		if phishOnly && !isPhishing {
			continue
		}

		// Sample benign URLs to rebalance heavily skewed datasets
		if !isPhishing && sampleRate < 1.0 {
			sampleCounter++
			if float64(sampleCounter%100)/100.0 >= sampleRate {
				continue
			}
		}

		urls = append(urls, LabeledURL{
			URL:        strings.TrimSpace(record[urlCol]),
			IsPhishing: isPhishing,
		})

		if limit > 0 && len(urls) >= limit {
			break
		}
	}

	return urls, nil
}

func runBenchmark(urls []LabeledURL, baseURL, mode string, threshold, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan LabeledURL, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}

			for u := range work {
				start := time.Now()
				result, err := analyzeURL(client, baseURL, mode, u.URL)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", u.URL, err)
					}
					continue
				}

				if u.IsPhishing {
					atomic.AddInt64(&metrics.TotalPhishing, 1)
				} else {
					atomic.AddInt64(&metrics.TotalBenign, 1)
				}

				predicted := result.Score >= threshold
				actual := u.IsPhishing

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if (predicted && !actual) || (!predicted && actual) {
						status = "✗"
					}
					display := u.URL
					if len(display) > 48 {
						display = display[:48]
					}
					fmt.Printf("%s %-48s | Phishing: %-5v | LinkGuard: %3d %-6s (%s)\n",
						status,
						display,
						u.IsPhishing,
						result.Score,
						result.RiskLevel,
						result.ModelUsed,
					)
				}
			}
		}()
	}

	for _, u := range urls {
		work <- u
	}
	close(work)

	wg.Wait()

	return metrics
}

func analyzeURL(client *http.Client, baseURL, mode, rawURL string) (*AnalyzeResponse, error) {
	req := AnalyzeRequest{
		URL:  rawURL,
		Mode: mode,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Phishing:   %d\n", m.TotalPhishing)
	fmt.Printf("   Total Benign:     %d\n", m.TotalBenign)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                   PHISH       BENIGN")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  P  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("           B  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of flagged URLs, how many were actual phishing)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of phishing URLs, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalPhishing > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalPhishing) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalPhishing) * 100
		fmt.Printf("   Phishing Detected: %d / %d (%.2f%%)\n", m.TruePositives, m.TotalPhishing, detectionRate)
		fmt.Printf("   Phishing Missed:   %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalPhishing, missRate)
	}
	if m.TotalBenign > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalBenign) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalBenign, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		ups := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f urls/sec\n", ups)
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most phishing")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some phishing")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant phishing being missed")
	} else {
		fmt.Println("   ❌ Poor recall - most phishing is being missed!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - alerts are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
