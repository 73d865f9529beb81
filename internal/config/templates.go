package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const clientTemplate = `# tcp "host:port" or a unix socket path
address = "127.0.0.1:6600"
password = ""

connect_timeout = "5s"
read_timeout = "10s"
write_timeout = "10s"

max_reconnects = 3
backoff_initial = "100ms"
backoff_max = "2s"
backoff_multiplier = 2.0
backoff_jitter = true

max_binary_bytes = 67108864

# "0s" disables status polling while playing
status_update_interval = "1s"
fetch_art = true
art_cache_size = 32
`
