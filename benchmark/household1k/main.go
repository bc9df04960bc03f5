package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"liyu1981.xyz/household-energy-service/pkg/client"
	householdGrpc "liyu1981.xyz/household-energy-service/pkg/grpc"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

var (
	maxHouseholds = flag.Int("households", 1000, "number of households to register")
	httpHostPort  = flag.String("http", "127.0.0.1:1080", "HTTP host:port")
	grpcHostPort  = flag.String("grpc", "127.0.0.1:10801", "gRPC host:port")
)

var (
	restClient *client.Client
	grpcClient *householdGrpc.HouseholdServiceClient

	rndMu sync.Mutex
	rnd   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func main() {
	flag.Parse()

	names := make([]string, *maxHouseholds)
	for i := range *maxHouseholds {
		names[i] = "bench-" + uuid.NewString()
	}
	fmt.Printf("generated %v household names\n", *maxHouseholds)

	restClient = client.New("http://" + *httpHostPort)
	if err := restClient.Health(); err != nil {
		log.Fatal("HTTP server not available: ", err)
	}
	fmt.Printf("http server verified\n")

	conn, err := grpc.NewClient(*grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("Failed to connect to gRPC server: ", err)
	}
	defer conn.Close()
	grpcClient = householdGrpc.NewHouseholdServiceClient(conn)

	if _, err := grpcClient.Call(context.Background(), householdGrpc.MethodListHouseholds, nil); err != nil {
		log.Fatal("gRPC server not available: ", err)
	}
	fmt.Printf("gRPC server verified and connected\n")

	startTime := time.Now()
	ids := make([]int64, len(names))
	wg := sync.WaitGroup{}
	for i := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i] = register(names[i])
			fmt.Printf("\rregistered household %v", i)
		}()
	}
	wg.Wait()
	usedTime := time.Since(startTime)

	fmt.Printf(
		"\rregistered %v households: used time=%v seconds, throughput=%v action/second\n",
		len(names), usedTime.Seconds(), float64(len(names))/usedTime.Seconds(),
	)

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doAction(names[i])
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\n\rdid actions for %v households: used time=%v seconds, throughput=%v action/second\n",
		len(names), usedTime.Seconds(), float64(len(names)*3)/usedTime.Seconds(),
	)

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := restClient.Delete(ids[i]); err != nil {
				fmt.Printf("\nerror: %v\n", err)
			}
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf("deleted %v households: used time=%v seconds\n", len(ids), usedTime.Seconds())
}

func flipCoin() bool {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(100000)%2 == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := math.Pow10(decimal)
	return math.Round(val*multiplier) / multiplier
}

func register(name string) int64 {
	persons := int(rndFloat64(1, 6, 0))

	if flipCoin() {
		id, err := restClient.Register(name, persons)
		if err != nil {
			panic(err)
		}
		return id
	}

	resp, err := grpcClient.Call(context.Background(), householdGrpc.MethodRegisterHousehold, map[string]any{
		"name":         name,
		"person_count": persons,
	})
	if err != nil {
		panic(err)
	}
	if success, message, _ := householdGrpc.StatusOf(resp); !success {
		panic(message)
	}
	return int64(resp.GetFields()["id"].GetNumberValue())
}

func doAction(name string) {
	actions := []func(){
		genPostReadingAction(name),
		genAggregateAction(name),
		genActivateAction(name),
	}
	actionNames := []string{
		"PostReading",
		"Aggregate",
		"Activate",
	}
	rndMu.Lock()
	rnd.Shuffle(len(actions), func(i, j int) {
		actions[i], actions[j] = actions[j], actions[i]
		actionNames[i], actionNames[j] = actionNames[j], actionNames[i]
	})
	pause := time.Duration(100+rnd.Int31n(1000)) * time.Millisecond
	rndMu.Unlock()

	for index, action := range actions {
		action()
		fmt.Printf("\rexecuted action %v for household %v", actionNames[index], name)
		time.Sleep(pause)
	}
}

func genPostReadingAction(name string) func() {
	return func() {
		reading := &models.SensorReading{
			Datetime:    time.Now().Truncate(time.Minute),
			Temperature: rndFloat64(15.0, 30.0, 2),
			Energy:      rndFloat64(0.0, 5.0, 3),
			Person:      rndFloat64(0, 5, 0),
		}

		if flipCoin() {
			if err := restClient.PostReading(name, reading); err != nil {
				fmt.Printf("\nerror: %v\n", err)
			}
			return
		}

		resp, err := grpcClient.Call(context.Background(), householdGrpc.MethodPostReading, map[string]any{
			"household":   name,
			"datetime":    reading.Datetime.Format(time.RFC3339),
			"temperature": reading.Temperature,
			"energy":      reading.Energy,
			"person":      reading.Person,
		})
		if err != nil {
			fmt.Printf("\nerror: %v\n", err)
			return
		}
		if success, message, _ := householdGrpc.StatusOf(resp); !success {
			fmt.Printf("\nresponse success = false: %v\n", message)
		}
	}
}

func genAggregateAction(name string) func() {
	return func() {
		if flipCoin() {
			if _, err := restClient.Readings(name, time.Time{}, time.Time{}); err != nil {
				fmt.Printf("\nerror: %v\n", err)
			}
			return
		}

		resp, err := grpcClient.Call(context.Background(), householdGrpc.MethodAggregateReadings, map[string]any{"household": name})
		if err != nil {
			fmt.Printf("\nerror: %v\n", err)
			return
		}
		if success, message, _ := householdGrpc.StatusOf(resp); !success {
			fmt.Printf("\nresponse success = false: %v\n", message)
		}
	}
}

func genActivateAction(name string) func() {
	return func() {
		if _, err := restClient.Activate(name); err != nil {
			fmt.Printf("\nerror: %v\n", err)
		}
	}
}
