package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Order mirrors the engine's order request wire format.
type Order struct {
	OrderID  string `json:"orderID"`
	Account  string `json:"account"`
	Type     string `json:"type"`
	Bid      bool   `json:"bid"`
	Amount   string `json:"amount"`
	Price    string `json:"price"`
	RouteAMM bool   `json:"routeAMM"`
}

// generateRandomID creates a random alphanumeric ID
func generateRandomID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	var result strings.Builder
	for i := 0; i < length; i++ {
		result.WriteByte(charset[rand.Intn(len(charset))])
	}
	return result.String()
}

// generateOrders creates a specified number of realistic orders
func generateOrders(count, accounts int, basePrice, priceSpread float64) []Order {
	orders := make([]Order, count)

	for i := 0; i < count; i++ {
		// Order types: 70% limit, 30% market
		orderType := "limit"
		if rand.Float64() < 0.3 {
			orderType = "market"
		}

		// Order side: 50/50 buy/sell
		isBid := rand.Float64() < 0.5

		// Market orders occasionally route straight to the pool
		routeAMM := orderType == "market" && rand.Float64() < 0.2

		orderID := generateRandomID(rand.Intn(4) + 9) // 9-12 characters
		account := fmt.Sprintf("trader-%d", rand.Intn(accounts)+1)

		// Amount between 0.001 and 2.0, three decimal places
		amount := 0.001 + rand.Float64()*1.999
		amount = float64(int(amount*1000)) / 1000

		// Price calculation
		var price float64
		if isBid { // Buy order - typically below market
			price = basePrice - rand.Float64()*priceSpread*0.8
		} else { // Sell order - typically above market
			price = basePrice + rand.Float64()*priceSpread*0.8
		}
		price = float64(int(price*10)) / 10
		if price <= 0 {
			price = basePrice
		}

		order := Order{
			OrderID:  orderID,
			Account:  account,
			Type:     orderType,
			Bid:      isBid,
			Amount:   fmt.Sprintf("%.3f", amount),
			RouteAMM: routeAMM,
		}
		if orderType == "limit" {
			order.Price = fmt.Sprintf("%.1f", price)
		}

		orders[i] = order
	}

	return orders
}

func main() {
	var (
		brokers     = flag.String("brokers", "localhost:9092", "Kafka broker addresses (comma-separated)")
		topic       = flag.String("topic", "orders", "Kafka topic name")
		file        = flag.String("file", "", "JSON file with orders (optional, generates orders if not provided)")
		delay       = flag.Duration("delay", 100*time.Millisecond, "Delay between sending orders")
		count       = flag.Int("count", 1000, "Number of orders to generate")
		accounts    = flag.Int("accounts", 20, "Number of distinct accounts")
		basePrice   = flag.Float64("base-price", 10000.0, "Base price for orders")
		priceSpread = flag.Float64("price-spread", 200.0, "Price spread range")
	)
	flag.Parse()

	rand.Seed(time.Now().UnixNano())

	// Create Kafka writer
	writer := &kafka.Writer{
		Addr:         kafka.TCP(*brokers),
		Topic:        *topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	ctx := context.Background()

	// Load orders
	var orders []Order
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("Failed to read file %s: %v", *file, err)
		}
		if err := json.Unmarshal(data, &orders); err != nil {
			log.Fatalf("Failed to parse JSON from file: %v", err)
		}
		log.Printf("Loaded %d orders from file: %s", len(orders), *file)
	} else {
		log.Printf("Generating %d orders...", *count)
		orders = generateOrders(*count, *accounts, *basePrice, *priceSpread)
		log.Printf("Generated %d orders", len(orders))
	}

	log.Printf("Sending orders to Kafka broker: %s, topic: %s", *brokers, *topic)
	log.Printf("Delay between orders: %v", *delay)

	// Send orders
	for i, order := range orders {
		orderJSON, err := json.Marshal(order)
		if err != nil {
			log.Printf("Failed to marshal order %d: %v", i+1, err)
			continue
		}

		msg := kafka.Message{
			Key:   []byte(order.OrderID),
			Value: orderJSON,
			Time:  time.Now(),
		}

		if err := writer.WriteMessages(ctx, msg); err != nil {
			log.Printf("Failed to send order %d (%s): %v", i+1, order.OrderID, err)
			continue
		}

		// Log progress every 100 orders or for the last order
		if (i+1)%100 == 0 || i == len(orders)-1 {
			side := "SELL"
			if order.Bid {
				side = "BUY"
			}

			if order.Type == "market" {
				log.Printf("Sent order %d/%d: %s | %s | %s %s | Amount: %s",
					i+1, len(orders), order.OrderID, order.Account,
					order.Type, side, order.Amount)
			} else {
				log.Printf("Sent order %d/%d: %s | %s | %s %s | Amount: %s @ $%s",
					i+1, len(orders), order.OrderID, order.Account,
					order.Type, side, order.Amount, order.Price)
			}
		}

		// Wait before sending next order (except for the last one)
		if i < len(orders)-1 {
			time.Sleep(*delay)
		}
	}

	log.Printf("Successfully sent all %d orders!", len(orders))

	// Print summary
	marketOrders := 0
	limitOrders := 0
	buyOrders := 0
	sellOrders := 0
	ammOrders := 0

	for _, order := range orders {
		if order.Type == "market" {
			marketOrders++
		} else {
			limitOrders++
		}
		if order.Bid {
			buyOrders++
		} else {
			sellOrders++
		}
		if order.RouteAMM {
			ammOrders++
		}
	}

	log.Printf("--- Summary ---")
	log.Printf("Total Orders: %d", len(orders))
	log.Printf("Market Orders: %d", marketOrders)
	log.Printf("Limit Orders: %d", limitOrders)
	log.Printf("Buy Orders: %d", buyOrders)
	log.Printf("Sell Orders: %d", sellOrders)
	log.Printf("AMM-Routed Orders: %d", ammOrders)
}
