package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/config"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/service"
)

// dayCurve is a clear-sky bell shape between 06:00 and 18:00 UTC scaled to peakKWh.
func dayCurve(t time.Time, peakKWh float64) float64 {
	h := float64(t.Hour()) + 0.5
	if h < 6 || h > 18 {
		return 0
	}
	return peakKWh * math.Sin((h-6)/12*math.Pi)
}

func main() {
	installation := flag.Int64("installation", 1, "installation id to publish for")
	days := flag.Int("days", 7, "number of days to publish, ending yesterday")
	peak := flag.Float64("peak", 6, "peak hourly production in kWh")
	flag.Parse()

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker()).SetClientID("pv-simulator")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	topic := fmt.Sprintf("pv/%d/production", *installation)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for d := *days; d > 0; d-- {
		day := today.AddDate(0, 0, -d)
		rows := make([]service.RawRow, 0, 24)
		for h := 0; h < 24; h++ {
			from := day.Add(time.Duration(h) * time.Hour)
			energy := dayCurve(from, *peak) * (0.7 + rand.Float64()*0.3)
			rows = append(rows, service.RawRow{
				From:   from.Format(time.RFC3339),
				To:     from.Add(time.Hour).Format(time.RFC3339),
				Energy: math.Round(energy*1000) / 1000,
			})
		}
		payload, err := json.Marshal(map[string]any{"rows": rows})
		if err != nil {
			log.Error().Err(err).Time("day", day).Msg("failed to marshal batch")
			continue
		}
		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Error().Err(err).Time("day", day).Msg("publish failed")
			continue
		}
		log.Info().Str("topic", topic).Time("day", day).Msg("batch published")
		time.Sleep(500 * time.Millisecond)
	}
	log.Info().Msg("simulation done")
}
