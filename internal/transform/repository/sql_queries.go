package repository

const (
	archiveJobQuery = `INSERT INTO archived_jobs (job_id, source_type, source_value, platforms, status, progress, per_platform, degraded, error_message, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
					ON CONFLICT (job_id) DO UPDATE
					SET status = EXCLUDED.status,
					    progress = EXCLUDED.progress,
					    per_platform = EXCLUDED.per_platform,
					    degraded = EXCLUDED.degraded,
					    error_message = EXCLUDED.error_message,
					    updated_at = EXCLUDED.updated_at`
	getArchivedJobQuery = `SELECT job_id, source_type, source_value, platforms, status, progress, per_platform, degraded, COALESCE(error_message, '') AS error_message, created_at, updated_at
					FROM archived_jobs WHERE job_id = $1`
)
