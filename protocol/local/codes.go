package local

// Well-known command codes. The panel echoes the request code in its
// response envelope; these constants name the codes this module issues
// directly (as opposed to codes only ever seen on the wire, e.g. inside
// notification/alert payloads).
const (
	// CodeHostInfo requests the panel's static host-info tuple (guid,
	// product, versions, radio status, phone number).
	CodeHostInfo Code = 206

	// CodeNotification and CodeAlert are the two local-notification UDP
	// envelope codes; see the notify package for sub-kind/type handling.
	CodeNotification Code = 170
	CodeAlert        Code = 208

	// Sensor and device list management.
	CodeGetSensorList       Code = 102
	CodeSetSingleSensor     Code = 103
	CodeDelSensor           Code = 131
	CodeAddSensor           Code = 156
	CodeAddDevice           Code = 134
	CodeSendRegDeviceResult Code = 135
	CodeDelDevice           Code = 136
	CodeControlDevice       Code = 137
	CodeGetDeviceList       Code = 138

	// History.
	CodeGetHistory Code = 200

	// Host status (arm/disarm) and config.
	CodeGetHostStatus  Code = 100
	CodeSetHostStatus  Code = 101
	CodeGetHostConfig  Code = 106
	CodeSetHostConfig  Code = 107
	CodeSetAlmPhone    Code = 108
	CodeGetAlmPhone    Code = 114
	CodeSetNoticeFlag  Code = 116
	CodeGetNoticeFlag  Code = 117
	CodeGetUserDataCRC Code = 160

	// Network (Wi-Fi/GPRS) config.
	CodeGetAPInfo Code = 212
	CodeSetAPInfo Code = 213
)
