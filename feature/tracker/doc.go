// Package tracker is the reward-terms tracking feature: the gorm-backed
// version store, the service that drives reconciliation runs over tracked
// cards, the HTTP API for browsing versions and crawl history, and the
// YAML seeding of banks and cards.
package tracker
