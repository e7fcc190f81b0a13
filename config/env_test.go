package config

import "testing"

func validConfig() EnvConfig {
	return EnvConfig{
		GatewayToken: "secret-token",
		StoreBackend: "postgres",
		DatabaseURL:  "postgres://localhost/engine",
		MediaBackend: "s3",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EnvConfig)
		wantErr bool
	}{
		{name: "valid postgres", mutate: func(c *EnvConfig) {}, wantErr: false},
		{name: "valid memory without database", mutate: func(c *EnvConfig) {
			c.StoreBackend = "memory"
			c.DatabaseURL = ""
		}, wantErr: false},
		{name: "valid local media", mutate: func(c *EnvConfig) { c.MediaBackend = "local" }, wantErr: false},
		{name: "missing gateway token", mutate: func(c *EnvConfig) { c.GatewayToken = "" }, wantErr: true},
		{name: "postgres without database url", mutate: func(c *EnvConfig) { c.DatabaseURL = "" }, wantErr: true},
		{name: "unknown store backend", mutate: func(c *EnvConfig) { c.StoreBackend = "sqlite" }, wantErr: true},
		{name: "unknown media backend", mutate: func(c *EnvConfig) { c.MediaBackend = "ftp" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
