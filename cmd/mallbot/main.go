package main

import (
	"log"

	"mallbot/core/buildinfo"
	corecmd "mallbot/core/cmd"
	"mallbot/internal/app"
)

func main() {
	log.Printf("mallbot %s (%s)", buildinfo.Version, buildinfo.Commit)

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("mallbot: %v", err)
	}
}
