// Package influxdb records catalog activity as InfluxDB v2 time series.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health checks. Each catalog
// change becomes one point in the catalog_events measurement.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) { logger.Warn("influx write", "error", err) })
//	client.WriteCatalogEvent("updated", 42, "admin", time.Now())
package influxdb
