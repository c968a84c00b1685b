// Package config loads typed configuration structs from the environment.
//
// It combines github.com/joho/godotenv (optional .env file) with
// github.com/caarlos0/env/v11 (struct tag parsing). Every package that needs
// settings declares its own Config struct with `env` tags; the composition
// root loads them with Load or MustLoad. Parsed values are cached per type.
package config
