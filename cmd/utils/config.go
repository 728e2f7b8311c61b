// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ClusterConfig is every setting an engine-node process needs to join a
// cluster.
type ClusterConfig struct {
	PeerID        string
	Peers         []string
	LogLevel      string
	LogFile       string
	MetricsAddr   string
	DumpCacheSize int
}

const defaultDumpCacheSize = 256

// LoadConfigFile reads path into a fresh viper instance. An empty path is
// not an error: the returned viper simply has nothing loaded, and Resolve
// falls back entirely to its receiver's values.
func LoadConfigFile(path string) (*viper.Viper, error) {
	v := viper.New()
	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return v, nil
}

// Resolve fills in any zero-valued field of c from v, giving CLI-flag
// values (already in c) precedence over the config file.
func (c ClusterConfig) Resolve(v *viper.Viper) ClusterConfig {
	resolved := c
	if resolved.PeerID == "" {
		resolved.PeerID = v.GetString("peer_id")
	}
	if len(resolved.Peers) == 0 {
		// A config file may write peers as a single comma-separated string
		// instead of a YAML/JSON list; split it before handing it to cast.
		raw := v.Get("peers")
		if s, ok := raw.(string); ok {
			var list []string
			for _, p := range strings.Split(s, ",") {
				if p = strings.TrimSpace(p); p != "" {
					list = append(list, p)
				}
			}
			raw = list
		}
		if peers, err := cast.ToStringSliceE(raw); err == nil {
			resolved.Peers = peers
		}
	}
	if resolved.LogLevel == "" {
		resolved.LogLevel = v.GetString("log_level")
	}
	if resolved.LogFile == "" {
		resolved.LogFile = v.GetString("log_file")
	}
	if resolved.MetricsAddr == "" {
		resolved.MetricsAddr = v.GetString("metrics_addr")
	}
	if resolved.DumpCacheSize == 0 {
		if n, err := cast.ToIntE(v.Get("dump_cache_size")); err == nil && n > 0 {
			resolved.DumpCacheSize = n
		} else {
			resolved.DumpCacheSize = defaultDumpCacheSize
		}
	}
	return resolved
}
