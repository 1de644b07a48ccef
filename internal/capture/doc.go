/*
Package capture owns the camera and publishes the live snapshot.

A single Worker goroutine reads frames continuously. When no save request is
pending the frame is dropped; when one is pending the frame is cropped to the
centred square, encoded as JPEG and written over the snapshot file, and the
request's reply channel receives the result.

# Backends

Cameras are reached through the Camera interface and opened with an Opener:

  - OpenV4L2 drives a V4L2 device through ffmpeg (raw RGB24 on a pipe) and
    queries supported sizes with v4l2-ctl.
  - OpenFake produces synthetic gradient frames for development and tests.

# Errors

Failing to open or configure the camera, or exhausting the per-frame retries,
produces a *DeviceError. Callers treat it as fatal for the capture subsystem.
*/
package capture
