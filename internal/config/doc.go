// Package config loads the sync layer configuration.
//
// Sources are applied in priority order (highest wins):
//  1. Default values in code
//  2. base.yaml
//  3. {environment}.yaml
//  4. local.yaml (development only)
//  5. Environment variables
//
// The result is validated before use. In development a Watcher reloads the
// files on change and hands the new Config to registered callbacks:
//
//	loader := config.NewLoader("config", config.Development)
//	cfg, err := loader.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w, _ := config.NewWatcher(loader, cfg, logger)
//	w.OnChange(func(c *config.Config) { query.SetDebounce(c.Search.Debounce) })
package config
