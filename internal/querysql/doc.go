// Package querysql builds the parameterized statements the temporal store runs
// against a live table, its shadow table and optional join tables.
//
// Values are never interpolated: every value is a `?` placeholder and travels
// in the statement's Args. Identifiers come from a validated schema.Table, so
// they are safe to splice. Every SELECT orders by id so callers can merge
// results deterministically.
//
// Shadow reads alias the shadow table under the live table's name:
//
//	SELECT page.id, MAX(page.nodeversiontimestamp)
//	FROM page_nodeversion AS page
//	WHERE (page.folder_id = ?) AND page.nodeversiontimestamp <= ?
//	GROUP BY page.id ORDER BY page.id ASC
//
// so a single predicate fragment such as "page.folder_id = ?" selects the same
// record set in the live table and in its history.
package querysql
