// Package staging talks to the intermediate object store that holds
// normalized clips between ingestion and the moderation verdict, and cleans
// up scratch space left behind by dead workers.
package staging
