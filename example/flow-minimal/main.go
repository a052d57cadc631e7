package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/emptyOVO/tripcount/batch"
)

func getenvDefault(name, d string) string {
	v := os.Getenv(name)
	if v == "" {
		return d
	}
	return v
}

func getenvInt(name string, d int) int {
	v := os.Getenv(name)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func main() {
	cfg := batch.FlowConfig{
		Version: batch.FlowVersionV1,
		Source: batch.FlowSourceConfig{
			Type:  "file",
			Paths: []string{getenvDefault("TRIPS", "../../txt/trips/*.csv")},
		},
		Transform: batch.FlowTransformConfig{
			App:        "busiest",
			TimeFormat: getenvDefault("TRIP_TIME_FORMAT", "us"),
			SideInputs: []string{getenvDefault("TOP_STATIONS", "../../txt/top_stations.txt#top_stations.txt")},
			Reducers:   getenvInt("MR_REDUCERS", 4),
			Workers:    getenvInt("MR_WORKERS", 8),
		},
		Sink: batch.FlowSinkConfig{
			Type: "mysql",
			DB: batch.DBConfig{
				Host:     getenvDefault("MYSQL_HOST", "localhost"),
				Port:     getenvInt("MYSQL_PORT", 3306),
				User:     getenvDefault("MYSQL_USER", "root"),
				Password: getenvDefault("MYSQL_PASSWORD", "123456"),
				Database: getenvDefault("MYSQL_DB", "bikes"),
			},
			Config: batch.SinkConfig{
				TargetTable: getenvDefault("TARGET_TABLE", "busiest_hours"),
				Replace:     true,
			},
		},
	}

	if err := batch.RunFlow(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}
