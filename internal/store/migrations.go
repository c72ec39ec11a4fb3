package store

const migrationProjects = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	repo_path TEXT NOT NULL UNIQUE,
	remote_url TEXT,
	main_branch TEXT NOT NULL DEFAULT 'main',
	max_concurrency INTEGER,
	created_at TEXT NOT NULL
);
`

const migrationPlans = `
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	description TEXT,
	source_branch TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_plans_project_id ON plans(project_id);
`

const migrationTasks = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	level INTEGER NOT NULL DEFAULT 0,
	estimated_lines INTEGER,
	branch_name TEXT,
	slot_id TEXT REFERENCES slots(id) ON DELETE SET NULL,
	session_id TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_plan_id ON tasks(plan_id);
CREATE INDEX IF NOT EXISTS idx_tasks_branch_name ON tasks(branch_name);
CREATE INDEX IF NOT EXISTS idx_tasks_session_id ON tasks(session_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_level ON tasks(level);
`

const migrationTaskDependencies = `
CREATE TABLE IF NOT EXISTS task_deps (
	task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	depends_on_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	PRIMARY KEY (task_id, depends_on_id)
);
CREATE INDEX IF NOT EXISTS idx_task_deps_task_id ON task_deps(task_id);
CREATE INDEX IF NOT EXISTS idx_task_deps_depends_on_id ON task_deps(depends_on_id);
`

const migrationSlots = `
CREATE TABLE IF NOT EXISTS slots (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	path TEXT NOT NULL,
	branch TEXT,
	status TEXT NOT NULL DEFAULT 'available',
	task_id TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_slots_project_id ON slots(project_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_slots_task_id ON slots(task_id) WHERE task_id IS NOT NULL;
`

const migrationPullRequests = `
CREATE TABLE IF NOT EXISTS prs (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL UNIQUE REFERENCES tasks(id) ON DELETE CASCADE,
	number INTEGER NOT NULL DEFAULT 0,
	url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'draft',
	base_branch TEXT NOT NULL,
	head_branch TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prs_task_id ON prs(task_id);
`

// migrations runs in dependency order: projects before plans/slots, plans
// before tasks, tasks before task_deps/prs, matching the teacher's ordered
// migration-list pattern (internal/db/sqlite.go Migrate).
var migrations = []string{
	migrationProjects,
	migrationPlans,
	migrationSlots,
	migrationTasks,
	migrationTaskDependencies,
	migrationPullRequests,
}
