package instance

import "os"

// GetID identifies the running replica: the Cloud Run revision, then the host name.
func GetID() string {
	for _, key := range []string{"K_REVISION", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
