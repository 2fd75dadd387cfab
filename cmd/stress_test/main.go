package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/stock-keeper/internal/adapter/storage"
	"github.com/rl1809/stock-keeper/internal/core/service"
	"github.com/rl1809/stock-keeper/internal/port"
)

const (
	totalRequests = 500
	queueSize     = 1000
)

func main() {
	redisAddr := flag.String("redis", "", "redis address; empty uses the in-process cache")
	flag.Parse()

	ctx := context.Background()

	var cache port.CacheRepository = storage.NewMemoryAdapter()
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		cache = storage.NewRedisAdapter(rdb)
	}

	sessions := service.NewSessionService(cache, zap.NewNop(), service.Options{
		IdleTTL:   time.Minute,
		QueueSize: queueSize,
	})
	defer sessions.Shutdown()

	// Drain the event queue in background
	go func() {
		for range sessions.Events() {
		}
	}()

	sessionID, err := sessions.Open(ctx, false)
	if err != nil {
		log.Fatalf("failed to open session: %v", err)
	}

	// Counters
	var successCount atomic.Int32
	var rejectCount atomic.Int32

	// Every valid request is sent twice with the same request id, plus one
	// invalid request, all concurrently against the same session.
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		for _, input := range []struct{ qty, price string }{{"1", "2.50"}, {"1", "2.50"}, {"0", "2.50"}} {
			wg.Add(1)
			go func(n int, qty, price string) {
				defer wg.Done()

				_, err := sessions.AddRecord(ctx, sessionID, fmt.Sprintf("req-%d", n), fmt.Sprintf("item-%d", n), qty, price)
				if err == nil {
					successCount.Add(1)
				} else {
					rejectCount.Add(1)
				}
			}(i, input.qty, input.price)
		}
	}

	wg.Wait()
	elapsed := time.Since(start)

	agg, err := sessions.Aggregates(ctx, sessionID)
	if err != nil {
		log.Fatalf("failed to read aggregates: %v", err)
	}

	// Results
	success := successCount.Load()
	reject := rejectCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests*3)
	fmt.Printf("Accepted:         %d\n", success)
	fmt.Printf("Rejected:         %d\n", reject)
	fmt.Printf("Records:          %d\n", agg.DistinctRecordCount)
	fmt.Printf("Total Value:      %s\n", agg.TotalValue.StringFixed(2))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == totalRequests && agg.DistinctRecordCount == totalRequests {
		fmt.Printf("PASS: exactly %d records stored\n", totalRequests)
	} else {
		fmt.Printf("FAIL: expected %d records, accepted %d, stored %d\n",
			totalRequests, success, agg.DistinctRecordCount)
	}

	wantValue := fmt.Sprintf("%.2f", float64(totalRequests)*2.5)
	if agg.TotalValue.StringFixed(2) == wantValue {
		fmt.Printf("PASS: total value %s\n", wantValue)
	} else {
		fmt.Printf("FAIL: expected total value %s, got %s\n", wantValue, agg.TotalValue.StringFixed(2))
	}
}
