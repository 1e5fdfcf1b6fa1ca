// Package domain contains the core business concepts for the shipping label service.
// Keep this package free of transport (HTTP) and infrastructure (Redis/Chrome/Postgres) concerns.
package domain
