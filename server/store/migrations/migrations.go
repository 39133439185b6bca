package migrations

// DialectTemplate is used as the templating control for differing SQL syntax between our supported databases
type DialectTemplate struct {
	Binary            string
	IntegerPrimaryKey string
}

// MigrationSet provides a set of migrations that can be applied to a database.
type MigrationSet []MigrationData

// MigrationData provides the data for a single migration, including Up and Down SQL.
// Templated values are supported and will be substituted for database-specific values
// before the migrations are applied.
type MigrationData struct {
	SequenceNumber int64
	Name           string
	UpSQL          string
	DownSQL        string
}

// ConveyorServerMigrations is the set of migrations to set up the database for the Conveyor server.
var ConveyorServerMigrations = MigrationSet{
	{
		SequenceNumber: 1,
		Name:           "create_pipelines",
		UpSQL: `CREATE TABLE IF NOT EXISTS pipelines
				(
					pipeline_id {{.IntegerPrimaryKey}},
					pipeline_created_at timestamp without time zone NOT NULL,
					pipeline_updated_at timestamp without time zone NOT NULL,
					pipeline_etag text NOT NULL,
					pipeline_name text NOT NULL,
					pipeline_scm_context text NOT NULL,
					pipeline_scm_uri text NOT NULL,
					pipeline_config_pipeline_id integer,
					pipeline_branch text NOT NULL,
					pipeline_chain_pr boolean NOT NULL,
					pipeline_admin_username text NOT NULL,
					pipeline_admin_token_sealed {{.Binary}},
					pipeline_workflow_graph text NOT NULL
				);
				CREATE UNIQUE INDEX IF NOT EXISTS pipelines_name_unique_index ON pipelines(pipeline_name);`,
		DownSQL: `DROP INDEX pipelines_name_unique_index;
				  DROP TABLE pipelines;`,
	},
	{
		SequenceNumber: 2,
		Name:           "create_jobs",
		UpSQL: `CREATE TABLE IF NOT EXISTS jobs
				(
					job_id {{.IntegerPrimaryKey}},
					job_created_at timestamp without time zone NOT NULL,
					job_updated_at timestamp without time zone NOT NULL,
					job_etag text NOT NULL,
					job_pipeline_id integer NOT NULL REFERENCES pipelines (pipeline_id) ON UPDATE NO ACTION ON DELETE NO ACTION,
					job_name text NOT NULL,
					job_state text NOT NULL
				);
				CREATE UNIQUE INDEX IF NOT EXISTS jobs_pipeline_id_name_unique_index ON jobs(job_pipeline_id, job_name);`,
		DownSQL: `DROP INDEX jobs_pipeline_id_name_unique_index;
				  DROP TABLE jobs;`,
	},
	{
		SequenceNumber: 3,
		Name:           "create_events",
		UpSQL: `CREATE TABLE IF NOT EXISTS events
				(
					event_id {{.IntegerPrimaryKey}},
					event_created_at timestamp without time zone NOT NULL,
					event_updated_at timestamp without time zone NOT NULL,
					event_etag text NOT NULL,
					event_pipeline_id integer NOT NULL REFERENCES pipelines (pipeline_id) ON UPDATE NO ACTION ON DELETE NO ACTION,
					event_type text NOT NULL,
					event_workflow_graph text NOT NULL,
					event_sha text NOT NULL,
					event_config_pipeline_sha text NOT NULL,
					event_parent_event_id integer,
					event_group_event_id integer NOT NULL,
					event_base_branch text NOT NULL,
					event_pr text NOT NULL,
					event_start_from text NOT NULL,
					event_parent_build_ids text,
					event_cause_message text NOT NULL,
					event_username text NOT NULL
				);
				CREATE INDEX IF NOT EXISTS events_group_event_id_index ON events(event_group_event_id);
				CREATE INDEX IF NOT EXISTS events_parent_event_id_index ON events(event_parent_event_id);`,
		DownSQL: `DROP INDEX events_group_event_id_index;
				  DROP INDEX events_parent_event_id_index;
				  DROP TABLE events;`,
	},
	{
		SequenceNumber: 4,
		Name:           "create_builds",
		UpSQL: `CREATE TABLE IF NOT EXISTS builds
				(
					build_id {{.IntegerPrimaryKey}},
					build_created_at timestamp without time zone NOT NULL,
					build_updated_at timestamp without time zone NOT NULL,
					build_etag text NOT NULL,
					build_event_id integer NOT NULL REFERENCES events (event_id) ON UPDATE NO ACTION ON DELETE NO ACTION,
					build_job_id integer NOT NULL REFERENCES jobs (job_id) ON UPDATE NO ACTION ON DELETE NO ACTION,
					build_status text NOT NULL,
					build_sha text NOT NULL,
					build_parent_build_ids text,
					build_parent_builds text,
					build_username text NOT NULL,
					build_base_branch text NOT NULL,
					build_config_pipeline_sha text NOT NULL
				);
				CREATE INDEX IF NOT EXISTS builds_event_id_index ON builds(build_event_id);
				CREATE INDEX IF NOT EXISTS builds_job_id_event_id_index ON builds(build_job_id, build_event_id);`,
		DownSQL: `DROP INDEX builds_event_id_index;
				  DROP INDEX builds_job_id_event_id_index;
				  DROP TABLE builds;`,
	},
}
