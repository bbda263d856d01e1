// Package schema holds the column metadata of every table under version control.
//
// A Registry maps a table name to its ordered column list. Each column is either
// versioned (present in the live table and in its shadow table) or unversioned
// (present only in the live table and always read from current state).
//
// Registries are populated once at startup, from code or from a YAML file, then
// sealed and shared read-only:
//
//	tables:
//	  - name: page
//	    columns:
//	      - {name: id, type: integer}
//	      - {name: title, type: text}
//	      - {name: created_by, type: integer, unversioned: true}
//
// The shadow table of "page" is "page_nodeversion" unless a different suffix is
// configured. It carries every versioned column plus the control columns
// nodeversiontimestamp, nodeversion_user, nodeversionlatest and
// nodeversionremoved (and auto_id when auto-increment is enabled).
package schema
