package storage

import (
	"github.com/go-redis/redis/v8"

	"fundsub/pkg/config"
	"fundsub/pkg/logger"
)

// Open 按配置组装 Sink：SQLite、InfluxDB、Redis Stream 中启用的都会写入。
// 一个都没启用时返回 nil。
func Open(cfg config.StorageConfig, producer string) (Sink, error) {
	log := logger.WithComponent("Storage")
	var sinks MultiSink

	if cfg.SQLitePath != "" {
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Infof("sqlite sink: %s", cfg.SQLitePath)
		sinks = append(sinks, s)
	}

	if cfg.Influx.URL != "" {
		log.Infof("influxdb sink: %s bucket=%s", cfg.Influx.URL, cfg.Influx.Bucket)
		sinks = append(sinks, NewInfluxSink(cfg.Influx))
	}

	if cfg.Stream.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Stream.Addr,
			Password: cfg.Stream.Password,
			DB:       cfg.Stream.DB,
		})
		log.Infof("redis stream sink: %s", cfg.Stream.Addr)
		sinks = append(sinks, NewStreamSink(client, producer, cfg.Stream.MaxLen))
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}
