package viewmodel

import (
	"bytes"
	"encoding/json"
)

type Team struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
}

type teamSource struct {
	TeamID   text `json:"teamId"`
	TeamName text `json:"teamName"`
}

// Teams reads the "teams" array of a /teams payload.
func Teams(raw []byte) []Team {
	out := []Team{}
	for _, item := range objects(raw, "teams") {
		if src, ok := sourceFields[teamSource](item); ok {
			out = append(out, Team{TeamID: string(src.TeamID), TeamName: string(src.TeamName)})
		}
	}
	return out
}

// ActiveTeam is the first team with an id. Only one team is active at a time.
func ActiveTeam(teams []Team) (Team, bool) {
	for _, t := range teams {
		if t.TeamID != "" {
			return t, true
		}
	}
	return Team{}, false
}

// identitySource covers the shapes the OAuth exchange has been seen to
// return: flat teamId/teamName, snake team_id, a nested team object, or team
// as a bare name.
type identitySource struct {
	TeamID   text            `json:"teamId"`
	TeamIDs  text            `json:"team_id"`
	TeamName text            `json:"teamName"`
	Team     json.RawMessage `json:"team"`
}

type nestedTeam struct {
	ID   text `json:"id"`
	Name text `json:"name"`
}

// Identity extracts the linked team from an identity-exchange response.
// ok is false when no team id can be found.
func Identity(raw []byte) (Team, bool) {
	src, ok := sourceFields[identitySource](raw)
	if !ok {
		return Team{}, false
	}

	var nested nestedTeam
	var bare text
	if t := bytes.TrimSpace(src.Team); len(t) > 0 {
		if t[0] == '{' {
			_ = json.Unmarshal(t, &nested)
		} else {
			_ = bare.UnmarshalJSON(t)
		}
	}

	team := Team{
		TeamID:   firstOf(src.TeamID, src.TeamIDs, nested.ID),
		TeamName: firstOf(src.TeamName, nested.Name, bare),
	}
	return team, team.TeamID != ""
}

// Valid reports whether a /slack/validate payload accepts the session. Only
// an explicit boolean valid:false or ok:false rejects it; each flag is read
// on its own so a mistyped one does not hide the other.
func Valid(raw []byte) bool {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return true
	}
	for _, key := range []string{"valid", "ok"} {
		var flag bool
		if v, ok := root[key]; ok && json.Unmarshal(v, &flag) == nil && !flag {
			return false
		}
	}
	return true
}
