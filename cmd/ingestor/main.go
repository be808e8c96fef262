package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/app"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/config"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/service"
)

// importTimeout bounds one MQTT batch including provider calls and the rebuild.
const importTimeout = 5 * time.Minute

type batchMessage struct {
	Rows []service.RawRow `json:"rows"`
}

// installationFromTopic extracts the id of pv/<id>/production.
func installationFromTopic(topic string) (int64, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "pv" || parts[2] != "production" {
		return 0, fmt.Errorf("unexpected topic %q", topic)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid installation id in topic %q", topic)
	}
	return id, nil
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(app.ParseLevel(config.LogLevel()))
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "ingestor").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, closeStore, err := app.Build(ctx, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}
	defer closeStore()

	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker()).SetClientID("pv-ingestor")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		id, err := installationFromTopic(msg.Topic())
		if err != nil {
			log.Error().Err(err).Msg("ingest failed")
			return
		}
		var batch batchMessage
		if err := json.Unmarshal(msg.Payload(), &batch); err != nil {
			log.Error().Err(err).Int64("installation", id).Msg("invalid batch payload")
			return
		}
		importCtx, cancel := context.WithTimeout(ctx, importTimeout)
		defer cancel()
		res, err := svcs.Production.ImportMeasuredProduction(importCtx, id, batch.Rows)
		if err != nil {
			log.Error().Err(err).Int64("installation", id).Msg("ingest failed")
			return
		}
		log.Info().Int64("installation", id).Str("batch", res.BatchID).Int("imported", res.Imported).Msg("batch ingested")
	}

	topic := config.MQTTTopic()
	if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	log.Info().Str("topic", topic).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
}
