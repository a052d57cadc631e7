package batch

import (
	"fmt"
	"strings"

	"github.com/emptyOVO/tripcount/master"
	"github.com/emptyOVO/tripcount/mrapps"
	"github.com/emptyOVO/tripcount/sideinput"
	"github.com/emptyOVO/tripcount/trip"
)

const FlowVersionV1 = "v1"

// ValidateFlowConfig validates v1 flow schema and required fields.
func ValidateFlowConfig(cfg FlowConfig) error {
	cfg.withDefaults()

	if strings.TrimSpace(cfg.Version) != FlowVersionV1 {
		return fmt.Errorf("unsupported version: %q (expected %q)", cfg.Version, FlowVersionV1)
	}
	switch cfg.Source.Type {
	case "file", "mysql", "redis":
	default:
		return fmt.Errorf("unsupported source.type: %s", cfg.Source.Type)
	}
	switch cfg.Sink.Type {
	case "file", "mysql", "redis":
	default:
		return fmt.Errorf("unsupported sink.type: %s", cfg.Sink.Type)
	}

	switch cfg.Source.Type {
	case "file":
		if len(cfg.Source.Paths) == 0 {
			return fmt.Errorf("source.paths is required for file source")
		}
	case "mysql":
		if cfg.Source.DB.User == "" || cfg.Source.DB.Database == "" {
			return fmt.Errorf("source.db.user and source.db.database are required for mysql source")
		}
		if strings.TrimSpace(cfg.Source.Config.Table) == "" {
			return fmt.Errorf("source.config.table is required for mysql source")
		}
	case "redis":
		if strings.TrimSpace(cfg.Source.RedisConfig.KeyPattern) == "" {
			return fmt.Errorf("source.redis_config.key_pattern is required for redis source")
		}
	}
	switch cfg.Sink.Type {
	case "file":
		if strings.TrimSpace(cfg.Sink.OutputDir) == "" {
			return fmt.Errorf("sink.output_dir is required for file sink")
		}
	case "mysql":
		if cfg.Sink.DB.User == "" || cfg.Sink.DB.Database == "" {
			return fmt.Errorf("sink.db.user and sink.db.database are required for mysql sink")
		}
		if strings.TrimSpace(cfg.Sink.Config.TargetTable) == "" {
			return fmt.Errorf("sink.config.targettable is required for mysql sink")
		}
	case "redis":
		if strings.TrimSpace(cfg.Sink.RedisConfig.KeyPrefix) == "" {
			return fmt.Errorf("sink.redis_config.key_prefix is required for redis sink")
		}
	}

	tf := cfg.Transform
	if _, err := mrapps.NewMapperFactory(tf.App, mrapps.Options{TimeFormat: trip.FormatUS}); err != nil {
		return fmt.Errorf("transform.app: %v", err)
	}
	if _, err := trip.ParseTimeFormat(tf.TimeFormat); err != nil {
		return fmt.Errorf("transform.time_format: %v", err)
	}
	if _, err := sideinput.ParseDiscovery(tf.Discovery); err != nil {
		return fmt.Errorf("transform.discovery: %v", err)
	}
	if _, err := master.ParseTransport(tf.Transport); err != nil {
		return fmt.Errorf("transform.transport: %v", err)
	}
	if mrapps.NeedsSideInput(tf.App) {
		if len(tf.SideInputs) == 0 {
			return fmt.Errorf("transform.side_inputs is required for app %s", tf.App)
		}
		if _, err := sideinput.ParseCandidates(tf.SideInputs); err != nil {
			return fmt.Errorf("transform.side_inputs: %v", err)
		}
	} else if len(tf.SideInputs) > 0 {
		return fmt.Errorf("transform.side_inputs must be empty for app %s", tf.App)
	}
	return nil
}
