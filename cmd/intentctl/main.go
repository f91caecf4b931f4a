package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/eventstore"
	"github.com/avvvet/community-intent/internal/geo"
	"github.com/avvvet/community-intent/internal/matcher"
	"github.com/avvvet/community-intent/internal/models"
	"github.com/avvvet/community-intent/internal/transport"
)

var (
	natsURL   string
	subject   string
	timeout   time.Duration
	eventsURL string
)

var rootCmd = &cobra.Command{
	Use:   "intentctl",
	Short: "Operator tool for the assistant intent service",
	Long: `Talk to a running intent service over NATS and inspect the pieces
it relies on.

Available subcommands:
  send   - Send an utterance and print the reply
  locate - Find the nearest landmark for a coordinate pair
  match  - Resolve an event reference against the events API`,
	SilenceUsage: true,
}

// sendCmd issues one command request
var sendCmd = &cobra.Command{
	Use:   "send <text>",
	Short: "Send an utterance and print the reply",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

// locateCmd runs the landmark lookup without network access
var locateCmd = &cobra.Command{
	Use:   "locate <latitude> <longitude>",
	Short: "Find the nearest landmark for a coordinate pair",
	Args:  cobra.ExactArgs(2),
	RunE:  runLocate,
}

// matchCmd resolves a reference the way the dispatcher does
var matchCmd = &cobra.Command{
	Use:   "match <reference>",
	Short: "Resolve an event reference against the events API",
	Args:  cobra.ExactArgs(1),
	RunE:  runMatch,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats-url", envOr("NATS_URL", "nats://localhost:4222"), "NATS server URL")
	rootCmd.PersistentFlags().StringVar(&subject, "subject", envOr("NATS_REQUEST_SUBJECT", "assistant.command"), "request subject")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 45*time.Second, "request timeout")
	rootCmd.PersistentFlags().StringVar(&eventsURL, "events-url", envOr("EVENTS_API_URL", "http://localhost:8000/api/events"), "events API base URL")

	sendCmd.Flags().String("user", "cli", "user id")
	sendCmd.Flags().String("session", "", "session id")
	sendCmd.Flags().Float64("lat", 0, "latitude")
	sendCmd.Flags().Float64("lng", 0, "longitude")
	sendCmd.Flags().String("message", "", "pre-formatted emergency message")

	locateCmd.Flags().String("landmarks", "", "YAML landmark file (defaults to the built-in table)")
	locateCmd.Flags().Float64("radius", geo.DefaultRadiusKm, "search radius in km")

	matchCmd.Flags().String("id", "", "event id to try before the name")
	matchCmd.Flags().Float64("threshold", matcher.DefaultThreshold, "minimum match score")
	matchCmd.Flags().String("filter", eventstore.FilterUpcoming, "date filter for the snapshot")

	rootCmd.AddCommand(sendCmd, locateCmd, matchCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	session, _ := cmd.Flags().GetString("session")
	message, _ := cmd.Flags().GetString("message")

	request := &models.CommandRequest{
		UserID:    user,
		Text:      args[0],
		SessionID: session,
		Message:   message,
	}
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		request.Location = &models.Coordinates{Latitude: lat, Longitude: lng}
	}

	conn, err := transport.Connect(natsURL, "intentctl", 5*time.Second, zap.NewNop())
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	response, err := transport.SendCommand(ctx, conn, subject, request)
	if err != nil {
		return err
	}
	return printJSON(cmd, response)
}

func runLocate(cmd *cobra.Command, args []string) error {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q: %w", args[0], err)
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q: %w", args[1], err)
	}
	point := models.Coordinates{Latitude: lat, Longitude: lng}
	if !point.Valid() {
		return fmt.Errorf("coordinates out of range: %s", point)
	}

	path, _ := cmd.Flags().GetString("landmarks")
	radius, _ := cmd.Flags().GetFloat64("radius")

	landmarks, err := geo.LoadLandmarks(path)
	if err != nil {
		return err
	}

	landmark, distance, ok := geo.NearestLandmark(point, landmarks, radius)
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "no landmark within %.1f km of %s\n", radius, point)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%.2f km)\n", landmark.Name, distance)
	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	filter, _ := cmd.Flags().GetString("filter")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	events, err := eventstore.NewHTTPStore(eventsURL, timeout, nil).ListEvents(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	result := matcher.New(threshold).Match(args[0], id, events)
	if result == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "no match for %q among %d events\n", args[0], len(events))
		for _, e := range matcher.Suggest(args[0], events, 3) {
			fmt.Fprintf(cmd.OutOrStdout(), "  suggestion: %s\n", e.Title)
		}
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [%s] score=%.2f\n", result.Event.Title, result.Event.ID, result.Score)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
