package domain

// Setting is a single key/value row in the durable settings store.
// Values are stringified, booleans as "true"/"false".
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Settings keys used by the owner-setup workflow.
const (
	// SettingOwnerSetUp records that the instance owner has been claimed.
	// Once "true", further claim attempts are rejected.
	SettingOwnerSetUp = "userManagement.isInstanceOwnerSetUp"

	// SettingSkipSetup records that owner setup was explicitly bypassed.
	// Independent of SettingOwnerSetUp; the flags do not conflict.
	SettingSkipSetup = "userManagement.skipInstanceOwnerSetup"
)
