package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// errIntegrity makes the command exit non-zero after printing the report.
var errIntegrity = errors.New("integrity check failed")

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// edgeSource is a parent/child edge set that must stay acyclic.
type edgeSource struct {
	name   string
	node   string
	table  string
	from   string
	to     string
	filter string
}

var edgeSources = []edgeSource{
	{name: "hierarchy", node: "position", table: "hierarchy_relations", from: "superior_position_id", to: "subordinate_position_id", filter: "is_active"},
	{name: "organization parents", node: "organization", table: "organizations", from: "parent_id", to: "id", filter: "parent_id IS NOT NULL"},
	{name: "division parents", node: "division", table: "divisions", from: "parent_id", to: "id", filter: "parent_id IS NOT NULL"},
}

// primarySource is a relation table allowing one flagged row per owner.
type primarySource struct {
	table string
	owner string
	flag  string
}

var primarySources = []primarySource{
	{table: "staff_positions", owner: "staff_id", flag: "is_primary"},
	{table: "staff_functions", owner: "staff_id", flag: "is_primary"},
	{table: "functional_assignments", owner: "position_id", flag: "is_primary"},
	{table: "staff_locations", owner: "staff_id", flag: "is_current"},
}

const mistypedLocations = `
SELECT s.id, o.id, o.org_type
FROM staff s
JOIN organizations o ON o.id = s.location_id
WHERE o.org_type <> 'location'
ORDER BY s.id`

// Issue is a single integrity finding.
type Issue struct {
	Check  string
	Table  string
	ID     int64
	Detail string
}

type Report struct {
	Issues []Issue
}

func (r *Report) add(check, table string, id int64, detail string) {
	r.Issues = append(r.Issues, Issue{Check: check, Table: table, ID: id, Detail: detail})
}

func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report hierarchy cycles, duplicate primaries and mistyped locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn, err := root.dsn()
			if err != nil {
				return err
			}
			pool, err := pgxpool.New(cmd.Context(), dsn)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			report, err := runChecks(cmd.Context(), pool)
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("%w: %d issue(s)", errIntegrity, len(report.Issues))
			}
			return nil
		},
	}
}

func runChecks(ctx context.Context, db queryer) (*Report, error) {
	report := &Report{}
	for _, src := range edgeSources {
		ids, err := queryIDs(ctx, db, cycleQuery(src))
		if err != nil {
			return nil, fmt.Errorf("check %s cycles: %w", src.name, err)
		}
		for _, id := range ids {
			report.add("cycle", src.table, id, fmt.Sprintf("%s %d reaches itself", src.node, id))
		}
	}
	for _, src := range primarySources {
		dups, err := queryDuplicates(ctx, db, src)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", src.table, err)
		}
		for _, d := range dups {
			report.add("duplicate "+strings.TrimPrefix(src.flag, "is_"), src.table, d.owner,
				fmt.Sprintf("%s=%d has %d rows with %s", src.owner, d.owner, d.count, src.flag))
		}
	}
	rows, err := db.Query(ctx, mistypedLocations)
	if err != nil {
		return nil, fmt.Errorf("check staff locations: %w", err)
	}
	mistyped, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Issue, error) {
		var (
			staffID, orgID int64
			orgType        string
		)
		err := row.Scan(&staffID, &orgID, &orgType)
		return Issue{
			Check:  "location type",
			Table:  "staff",
			ID:     staffID,
			Detail: fmt.Sprintf("location_id=%d is a %s organization", orgID, orgType),
		}, err
	})
	if err != nil {
		return nil, fmt.Errorf("check staff locations: %w", err)
	}
	report.Issues = append(report.Issues, mistyped...)
	return report, nil
}

// cycleQuery returns the nodes that can reach themselves by following
// edges of src.
func cycleQuery(src edgeSource) string {
	return fmt.Sprintf(`
WITH RECURSIVE edges AS (
    SELECT %[2]s AS parent, %[3]s AS child FROM %[1]s WHERE %[4]s
), walk(origin, node, path, looped) AS (
    SELECT parent, child, ARRAY[parent, child], parent = child FROM edges
  UNION ALL
    SELECT w.origin, e.child, w.path || e.child, e.child = ANY(w.path)
    FROM walk w
    JOIN edges e ON e.parent = w.node
    WHERE NOT w.looped
)
SELECT DISTINCT origin FROM walk WHERE looped AND node = origin ORDER BY origin`,
		src.table, src.from, src.to, src.filter)
}

func duplicateQuery(src primarySource) string {
	return fmt.Sprintf(`
SELECT %[2]s, count(*) FROM %[1]s
WHERE %[3]s
GROUP BY %[2]s
HAVING count(*) > 1
ORDER BY %[2]s`, src.table, src.owner, src.flag)
}

type duplicate struct {
	owner int64
	count int64
}

func queryIDs(ctx context.Context, db queryer, sql string) ([]int64, error) {
	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func queryDuplicates(ctx context.Context, db queryer, src primarySource) ([]duplicate, error) {
	rows, err := db.Query(ctx, duplicateQuery(src))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (duplicate, error) {
		var d duplicate
		err := row.Scan(&d.owner, &d.count)
		return d, err
	})
}

func writeReport(w io.Writer, report *Report) error {
	if report.OK() {
		_, err := fmt.Fprintln(w, "no integrity issues found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tTABLE\tID\tDETAIL")
	for _, is := range report.Issues {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", is.Check, is.Table, is.ID, is.Detail)
	}
	return tw.Flush()
}
