package mcp

type GetRecordArgs struct {
	Key string `json:"key" jsonschema:"The record key (user id)"`
}

type GetRecordResult struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type PutRecordArgs struct {
	Key   string `json:"key" jsonschema:"The record key (user id)"`
	Value any    `json:"value" jsonschema:"Any JSON value: object, array, string, number, boolean or null"`
}

type PutRecordResult struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

type DeleteRecordArgs struct {
	Key string `json:"key" jsonschema:"The record key (user id)"`
}

type DeleteRecordResult struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

type ListRecordsArgs struct {
	Prefix string `json:"prefix,omitempty" jsonschema:"Only return keys starting with this prefix"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max number of keys (default 100)"`
}

type ListRecordsResult struct {
	Keys      []string `json:"keys"`
	Total     int      `json:"total"`
	Truncated bool     `json:"truncated"`
}
