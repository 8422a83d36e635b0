package main

type StdinConfiguration struct {
	Seq  int    `yaml:"seq" validate:"gte=0"`
	File string `yaml:"file"`
	Text string `yaml:"text"`
}

type BenchmarkConfiguration struct {
	Warmup  *int                `yaml:"warmup,omitempty" validate:"omitempty,gte=0"`
	Runs    int                 `yaml:"runs" validate:"gte=0"`
	MinTime string              `yaml:"minTime"`
	MaxRuns int                 `yaml:"maxRuns" validate:"gte=0"`
	RSE     float64             `yaml:"rse" validate:"gte=0"`
	Timeout string              `yaml:"timeout"`
	Shell   *string             `yaml:"shell,omitempty"`
	Stdin   *StdinConfiguration `yaml:"stdin,omitempty"`
}

type Benchmark struct {
	Name                   string   `yaml:"name"`
	Command                string   `yaml:"command" validate:"required"`
	Args                   []string `yaml:"args"`
	BenchmarkConfiguration `yaml:",inline"`
}

type BenchmarkList struct {
	Requires               string `yaml:"requires"`
	BenchmarkConfiguration `yaml:",inline"`
	Commands               []Benchmark `yaml:"commands" validate:"dive"`
}
