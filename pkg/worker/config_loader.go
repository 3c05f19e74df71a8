package worker

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Watermill SubscriberConfig `yaml:"watermill"`
	Line      struct {
		Events      []string `yaml:"events"`
		TopicPrefix string   `yaml:"topic_prefix"`
	} `yaml:"line"`
}

type RulesConfig struct {
	Rules []struct {
		Emit emitList `yaml:"emit"`
	} `yaml:"rules"`
}

// emitList accepts either a single YAML scalar or a sequence of topics, the
// same way the gateway parses rule emit lists.
type emitList []string

func (e *emitList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*e = emitList{single}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*e = emitList(many)
	return nil
}

func LoadSubscriberConfig(path string) (SubscriberConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg.Watermill, err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg.Watermill, err
	}
	applySubscriberDefaults(&cfg.Watermill)
	return cfg.Watermill, nil
}

// LoadTopicsFromConfig returns every topic the gateway can publish to for the
// given config: the rules' emit topics when rules are configured, otherwise
// the default "<prefix>.<event>" topic per subscribed event kind.
func LoadTopicsFromConfig(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(data))

	var rulesCfg RulesConfig
	if err := yaml.Unmarshal([]byte(expanded), &rulesCfg); err != nil {
		return nil, err
	}

	topics := make([]string, 0, len(rulesCfg.Rules))
	seen := make(map[string]struct{}, len(rulesCfg.Rules))
	for _, rule := range rulesCfg.Rules {
		for _, topic := range rule.Emit {
			topic = strings.TrimSpace(topic)
			if topic == "" {
				continue
			}
			if _, ok := seen[topic]; ok {
				continue
			}
			seen[topic] = struct{}{}
			topics = append(topics, topic)
		}
	}
	if len(topics) > 0 {
		return topics, nil
	}

	var appCfg AppConfig
	if err := yaml.Unmarshal([]byte(expanded), &appCfg); err != nil {
		return nil, err
	}
	prefix := appCfg.Line.TopicPrefix
	if prefix == "" {
		prefix = "line"
	}
	events := appCfg.Line.Events
	if len(events) == 0 {
		events = []string{"message"}
	}
	for _, event := range events {
		event = strings.TrimSpace(event)
		if event == "" {
			continue
		}
		topics = append(topics, prefix+"."+event)
	}
	return topics, nil
}

func applySubscriberDefaults(cfg *SubscriberConfig) {
	if cfg.Driver == "" && len(cfg.Drivers) == 0 {
		cfg.Driver = "gochannel"
	}
	if cfg.GoChannel.OutputChannelBuffer == 0 {
		cfg.GoChannel.OutputChannelBuffer = 64
	}
	if cfg.NATS.ClientIDSuffix == "" {
		cfg.NATS.ClientIDSuffix = "-worker"
	}
}
