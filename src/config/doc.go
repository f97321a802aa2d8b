// Package config defines the configuration of a bus node. The fields carry
// mapstructure tags so that they can be populated by viper from command line
// flags or from a busnode.toml file in the data directory.
package config
