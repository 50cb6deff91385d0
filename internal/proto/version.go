package proto

// ProtocolToken identifies the wire format this build of buildc/buildd
// speaks. The daemon registry (SPEC_FULL §3.5, §4.8) uses it to reject a
// resident daemon built from an incompatible version before a client ever
// connects to its socket.
const ProtocolToken = "buildtool-accel-wire-v1"
