package database

import (
	"context"
	"fmt"
	"time"

	"binance-monitor/internal/scheduler"
)

// InsertTask persists a freshly accepted task. The task's logical clock
// doubles as created and begin time.
func (r *Repository) InsertTask(ctx context.Context, task *scheduler.ScheduledTask) error {
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO scheduled_tasks (
		for_username, token_name, request_id, side, monitor_time_secs,
		col_id, status, task_type, order_price, money, quantity,
		created_time, last_begin_time
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)`,
		task.Username, task.TokenName, task.RequestID, task.Direction,
		task.PeriodSecs, task.ColumnID, int(task.Status), int(task.Type),
		task.OrderPrice, task.Money, task.Quantity, task.CurrentTime.UTC())
	if err != nil {
		return fmt.Errorf("insert task %s: %w", task.RequestID, err)
	}
	return nil
}

// UpdateTaskStatus updates the status of every task of a request, plus
// whichever of the begin and end timestamps is given.
func (r *Repository) UpdateTaskStatus(ctx context.Context, state scheduler.TaskState, requestID string, lastBegin, lastEnd *time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE scheduled_tasks SET
		status = $1,
		last_begin_time = COALESCE($2, last_begin_time),
		last_end_time = COALESCE($3, last_end_time)
		WHERE request_id = $4`,
		int(state), lastBegin, lastEnd, requestID)
	if err != nil {
		return fmt.Errorf("update task status %s: %w", requestID, err)
	}
	return nil
}

// RemoveTask deletes every task of a request.
func (r *Repository) RemoveTask(ctx context.Context, requestID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM scheduled_tasks WHERE request_id = $1`, requestID)
	if err != nil {
		return fmt.Errorf("remove task %s: %w", requestID, err)
	}
	return nil
}

// LoadTasks fetches tasks in any of the given states, optionally
// narrowed to one request.
func (r *Repository) LoadTasks(ctx context.Context, states []scheduler.TaskState, requestID string) ([]scheduler.ScheduledTask, error) {
	ints := make([]int, len(states))
	for i, s := range states {
		ints[i] = int(s)
	}

	query := `SELECT for_username, token_name, request_id, side,
		monitor_time_secs, col_id, status, task_type, order_price,
		money, quantity FROM scheduled_tasks WHERE status = ANY($1)`
	args := []any{ints}
	if requestID != "" {
		query += ` AND request_id = $2`
		args = append(args, requestID)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	var tasks []scheduler.ScheduledTask
	for rows.Next() {
		var t scheduler.ScheduledTask
		var status, taskType int
		if err := rows.Scan(&t.Username, &t.TokenName, &t.RequestID, &t.Direction,
			&t.PeriodSecs, &t.ColumnID, &status, &taskType,
			&t.OrderPrice, &t.Money, &t.Quantity); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		t.Status = scheduler.TaskState(status)
		t.Type = scheduler.TaskType(taskType)
		t.CurrentTime = now
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MyTasks returns every task an operator owns, newest request first.
func (r *Repository) MyTasks(ctx context.Context, username string) ([]scheduler.ScheduledTask, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT for_username, token_name,
		request_id, side, monitor_time_secs, col_id, status, task_type,
		order_price, money, quantity
		FROM scheduled_tasks WHERE for_username = $1 ORDER BY created_time DESC`,
		username)
	if err != nil {
		return nil, fmt.Errorf("load tasks for %q: %w", username, err)
	}
	defer rows.Close()

	var tasks []scheduler.ScheduledTask
	for rows.Next() {
		var t scheduler.ScheduledTask
		var status, taskType int
		if err := rows.Scan(&t.Username, &t.TokenName, &t.RequestID, &t.Direction,
			&t.PeriodSecs, &t.ColumnID, &status, &taskType,
			&t.OrderPrice, &t.Money, &t.Quantity); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		t.Status = scheduler.TaskState(status)
		t.Type = scheduler.TaskType(taskType)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateRecordsTable creates the per-operator result table and returns
// its name.
func (r *Repository) CreateRecordsTable(ctx context.Context, username string) (string, error) {
	table := TableNameFor(username, "_records")
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		token_name    TEXT,
		side          TEXT,
		time          TIMESTAMP,
		profit        DOUBLE PRECISION,
		mkt_price     DOUBLE PRECISION,
		ordered_price DOUBLE PRECISION,
		money         DOUBLE PRECISION,
		quantity      DOUBLE PRECISION,
		col_id        INTEGER,
		task_type     INTEGER,
		request_id    TEXT
	)`, table)

	if _, err := r.db.Pool.Exec(ctx, ddl); err != nil {
		return "", fmt.Errorf("create %s: %w", table, err)
	}
	return table, nil
}

// InsertRecord appends one ticker result.
func (r *Repository) InsertRecord(ctx context.Context, table string, result *scheduler.TaskResult) error {
	query := fmt.Sprintf(`INSERT INTO %s (
		token_name, side, time, profit, mkt_price, ordered_price,
		money, quantity, col_id, task_type, request_id
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, table)

	_, err := r.db.Pool.Exec(ctx, query,
		result.TokenName, result.Direction, result.Time.UTC(), result.Profit,
		result.MktPrice, result.OrderedPrice, result.Money, result.Quantity,
		result.ColumnID, int(result.Type), result.RequestID)
	if err != nil {
		return fmt.Errorf("insert record into %s: %w", table, err)
	}
	return nil
}

// LoadRecords returns the persisted results for one request, oldest
// first.
func (r *Repository) LoadRecords(ctx context.Context, username, requestID string) ([]scheduler.TaskResult, error) {
	table := TableNameFor(username, "_records")
	query := fmt.Sprintf(`SELECT token_name, side, time, profit, mkt_price,
		ordered_price, money, quantity, col_id, task_type, request_id
		FROM %s WHERE request_id = $1 ORDER BY time`, table)

	rows, err := r.db.Pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("load records from %s: %w", table, err)
	}
	defer rows.Close()

	var results []scheduler.TaskResult
	for rows.Next() {
		var res scheduler.TaskResult
		var taskType int
		if err := rows.Scan(&res.TokenName, &res.Direction, &res.Time,
			&res.Profit, &res.MktPrice, &res.OrderedPrice, &res.Money,
			&res.Quantity, &res.ColumnID, &taskType, &res.RequestID); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		res.Type = scheduler.TaskType(taskType)
		res.Username = username
		results = append(results, res)
	}
	return results, rows.Err()
}
