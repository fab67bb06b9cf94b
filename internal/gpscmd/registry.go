package gpscmd

// commandName maps a (command, direction) pair to a human-readable label,
// mirroring original_source/gpspod/protocol.py's message_lookup table.
// It is a diagnostic lookup only and is never used for dispatch, since each
// typed command function already knows its own codes.
var commandName = map[[2]uint16]string{
	{cmdDeviceInfoRequest, dirDeviceInfoRequest}: "DeviceInfoRequest",
	{cmdDeviceInfoReply, dirDeviceInfoReply}:     "DeviceInfoReply",
	{cmdDeviceStatus, dirRequest}:                "DeviceStatusRequest",
	{cmdDeviceStatus, dirReply}:                  "DeviceStatusReply",
	{cmdReadSettings, dirRequest}:                "ReadSettingsRequest",
	{cmdReadSettings, dirReply}:                  "ReadSettingsReply",
	{cmdWriteSettings, dirRequest}:               "WriteSettingsRequest",
	{cmdWriteSettings, dirReply}:                 "WriteSettingsReply",
	{cmdDataRequest, dirRequest}:                 "DataRequest",
	{cmdDataRequest, dirReply}:                   "DataReply",
	{cmdLogCount, dirRequest}:                    "LogCountRequest",
	{cmdLogCount, dirReply}:                      "LogCountReply",
	{cmdLogHeaderRewind, dirRequest}:             "LogHeaderRewindRequest",
	{cmdLogHeaderRewind, dirReply}:               "LogHeaderRewindReply",
	{cmdLogHeaderStep, dirRequest}:               "LogHeaderStepRequest",
	{cmdLogHeaderStep, dirReply}:                 "LogHeaderStepReply",
	{cmdLogHeaderEntry, dirRequest}:              "LogHeaderEntryRequest",
	{cmdLogHeaderEntry, dirReply}:                "LogHeaderEntryReply",
	{cmdLogHeaderPeek, dirRequest}:               "LogHeaderPeekRequest",
	{cmdLogHeaderPeek, dirReply}:                 "LogHeaderPeekReply",
	{cmdSetDate, dirRequest}:                     "SetDateRequest",
	{cmdSetDate, dirReply}:                       "SetDateReply",
	{cmdSetTime, dirRequest}:                     "SetTimeRequest",
	{cmdSetTime, dirReply}:                       "SetTimeReply",
	{cmdReset, dirRequest}:                       "ResetRequest",
	{cmdReset, dirReply}:                         "ResetReply",
}

// CommandName returns a human-readable label for a (command, direction)
// pair, or "" if the pair is unknown.
func CommandName(command, direction uint16) string {
	return commandName[[2]uint16{command, direction}]
}
