package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	cmdSchema := compile("cmd.schema.json")
	stateSchema := compile("state.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"builder1"
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "client_id":"C1",
	  "resume_token":"resume_world_1_123",
	  "world_params":{
	    "world_id":"world_1",
	    "tick_rate_hz":10,
	    "width":256,
	    "height":256,
	    "seed":1337
	  },
	  "catalogs":{
	    "resource_palette":{"digest":"deadbeef","count":8},
	    "terrain_palette":{"digest":"deadbeef","count":6},
	    "structures_digest":"deadbeef"
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var cmd any
	_ = json.Unmarshal([]byte(`{
	  "type":"CMD",
	  "protocol_version":"1.0",
	  "commands":[
	    {"id":"c1","kind":"PLACE","def_id":"FARM","anchor":[5,5],"rotation":90},
	    {"id":"c2","kind":"DEMOLISH","structure_id":"B000001"}
	  ]
	}`), &cmd)
	validate(cmdSchema, cmd)

	var state any
	_ = json.Unmarshal([]byte(`{
	  "type":"STATE",
	  "protocol_version":"1.0",
	  "tick":42,
	  "digest":"deadbeef",
	  "structures":[
	    {
	      "id":"B000001",
	      "def_id":"FARM",
	      "anchor":[5,5],
	      "rotation":0,
	      "state":"OPERATIONAL",
	      "progress":1,
	      "output":[{"resource":"GRAIN","count":4}],
	      "cycle_count":2
	    }
	  ],
	  "events":[
	    {"t":42,"type":"CMD_RESULT","ref":"c1","ok":true,"structure_id":"B000001"}
	  ]
	}`), &state)
	validate(stateSchema, state)
}
