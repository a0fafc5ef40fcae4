// Package stores provides persistence layer implementations for
// CloudGovern. It includes SQLite-based storage with WAL mode, connection
// pooling, and CRUD operations for policies, waivers, and compliance
// reports, plus the report queries backing compliance trend output.
package stores
