package config

import "time"

// Output sinks.
const (
	SinkFile     = "file"
	SinkPostgres = "postgres"
)

// Config is the root configuration of a merge run.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	I18n     I18nConfig     `yaml:"i18n"`
	Variant  VariantConfig  `yaml:"variant"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// InputConfig locates the two corpora.
type InputConfig struct {
	PrimaryDir    string `yaml:"primary_dir"    env:"INPUT_PRIMARY_DIR"    env-default:"./data/en"`
	SecondaryDir  string `yaml:"secondary_dir"  env:"INPUT_SECONDARY_DIR"  env-default:"./data/zh"`
	PrimaryLang   string `yaml:"primary_lang"   env:"INPUT_PRIMARY_LANG"   env-default:"en"`
	SecondaryLang string `yaml:"secondary_lang" env:"INPUT_SECONDARY_LANG" env-default:"zh"`
	// LoadWorkers bounds concurrent file reads.
	LoadWorkers int `yaml:"load_workers" env:"INPUT_LOAD_WORKERS" env-default:"4"`
}

// OutputConfig holds sink settings.
type OutputConfig struct {
	Dir      string `yaml:"dir"      env:"OUTPUT_DIR"      env-default:"./output"`
	Sink     string `yaml:"sink"     env:"OUTPUT_SINK"     env-default:"file"`
	Workers  int    `yaml:"workers"  env:"OUTPUT_WORKERS"  env-default:"8"`
	Workbook bool   `yaml:"workbook" env:"OUTPUT_WORKBOOK" env-default:"true"`
	Indent   bool   `yaml:"indent"   env:"OUTPUT_INDENT"   env-default:"true"`
}

// DatabaseConfig holds PostgreSQL connection settings. Only the postgres
// sink uses it.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	BatchSize       int           `yaml:"batch_size"         env:"DATABASE_BATCH_SIZE"         env-default:"500"`
	Migrate         bool          `yaml:"migrate"            env:"DATABASE_MIGRATE"            env-default:"true"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// I18nConfig tunes field classification and grouped blocks.
type I18nConfig struct {
	ForceLocalizedKeys []string `yaml:"force_localized_keys" env:"I18N_FORCE_LOCALIZED_KEYS" env-default:"name,entries"`
	ForceCommonKeys    []string `yaml:"force_common_keys"    env:"I18N_FORCE_COMMON_KEYS"    env-default:"source,page"`
	WeaponKeys         []string `yaml:"weapon_keys"          env:"I18N_WEAPON_KEYS"`
	ArmorKeys          []string `yaml:"armor_keys"           env:"I18N_ARMOR_KEYS"`
	// EmptyValue fills localized fields the secondary corpus lacks.
	EmptyValue string `yaml:"empty_value" env:"I18N_EMPTY_VALUE"`
}

// VariantConfig tunes variant expansion.
type VariantConfig struct {
	SourcePriority []string `yaml:"source_priority" env:"VARIANT_SOURCE_PRIORITY" env-default:"XPHB,XDMG,PHB,DMG"`
}

// PipelineConfig selects what a run does.
type PipelineConfig struct {
	// Phases restricts the run to the named phases; empty runs all.
	Phases []string `yaml:"phases"  env:"PIPELINE_PHASES"`
	DryRun bool     `yaml:"dry_run" env:"PIPELINE_DRY_RUN" env-default:"false"`
}
