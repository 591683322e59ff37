// Package siterag crawls websites, extracts and normalizes their content,
// and indexes it for semantic retrieval. A crawl job discovers and fetches
// pages, parses them into clean text and links, splits the text into
// overlapping chunks, embeds the chunks and stores them in a vector index
// partitioned by job.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, qdrant/).
package siterag
