package cli

// Export internal functions for testing.

// RunRecord exports runRecord for testing.
var RunRecord = runRecord

// RunSend exports runSend for testing.
var RunSend = runSend

// RunAsk exports runAsk for testing.
var RunAsk = runAsk

// RunHealth exports runHealth for testing.
var RunHealth = runHealth

// RunConfigSet exports runConfigSet for testing.
var RunConfigSet = runConfigSet

// RunConfigGet exports runConfigGet for testing.
var RunConfigGet = runConfigGet

// RunConfigList exports runConfigList for testing.
var RunConfigList = runConfigList

// RunListDevices exports runListDevices for testing.
var RunListDevices = runListDevices

// DefaultRecordingFilename exports defaultRecordingFilename for testing.
var DefaultRecordingFilename = defaultRecordingFilename
