// Package directory provides read-only lookups of local users by normalized profile keys.
//
// Two backends implement the same matching criteria: MemoryDirectory, loaded from a JSON
// users file, and PostgresDirectory, which runs one OR-combined query against a users
// table. Only active users (no deactivation timestamp) are ever returned, ordered by id.
package directory
