// Package models defines domain entities and persistence interfaces for the shuaigou content-rewrite service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs passed between the engine and the workflow client
//   - [RewriteRequest] : One user-initiated rewrite (source text + instruction)
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [User] : User accounts with point balance, daily reset date, and sign-in state
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
//
// The point balance on [User] is authoritative only inside the store: the engine reads
// it for prechecks but every mutation goes through the ledger's conditional update.
package models
