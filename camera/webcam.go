package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var (
	// ErrPermissionDenied means the OS refused access to the camera
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrDeviceUnavailable means no camera could be opened
	ErrDeviceUnavailable = errors.New("camera unavailable")
	// ErrCaptureNotReady means the stream produced no usable frame yet; retry later
	ErrCaptureNotReady = errors.New("camera not ready")
)

// Device is a camera that hands out square stills
type Device interface {
	Acquire(ctx context.Context) error
	CaptureStill(ctx context.Context) (image.Image, error)
	Release() error
}

// requested stream size; the driver may pick something else
const (
	idealFrameWidth  = 1280
	idealFrameHeight = 720
)

// Webcam captures square, mirrored stills from a local video device through OpenCV.
type Webcam struct {
	deviceID  int
	stillSize int

	mu      sync.Mutex
	capture *gocv.VideoCapture
}

var _ Device = (*Webcam)(nil)

func NewWebcam(deviceID, stillSize int) *Webcam {
	return &Webcam{deviceID: deviceID, stillSize: stillSize}
}

// Acquire opens the device if it is not open yet. it can be called again
// after a failure; that is how the shell's retry button works.
func (c *Webcam) Acquire(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquireLocked(ctx)
}

func (c *Webcam) acquireLocked(ctx context.Context) error {
	if c.capture != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	vc, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil || !vc.IsOpened() {
		if vc != nil {
			vc.Close()
		}
		cause := c.classifyOpenFailure()
		log.Printf("camera: failed to open device %d: %v (%v)", c.deviceID, cause, err)
		return fmt.Errorf("open device %d: %w", c.deviceID, cause)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, idealFrameWidth)
	vc.Set(gocv.VideoCaptureFrameHeight, idealFrameHeight)

	c.capture = vc
	log.Printf("camera: opened device %d", c.deviceID)
	return nil
}

// classifyOpenFailure tells a permission problem apart from a missing device
func (c *Webcam) classifyOpenFailure() error {
	f, err := os.Open(fmt.Sprintf("/dev/video%d", c.deviceID))
	if err == nil {
		f.Close()
		return ErrDeviceUnavailable
	}
	if os.IsPermission(err) {
		return ErrPermissionDenied
	}
	return ErrDeviceUnavailable
}

// CaptureStill grabs the current frame, crops the centre square, scales it
// to the still size and mirrors it for selfie orientation.
func (c *Webcam) CaptureStill(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.acquireLocked(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := gocv.NewMat()
	defer frame.Close()
	if ok := c.capture.Read(&frame); !ok || frame.Empty() {
		return nil, ErrCaptureNotReady
	}

	crop := CenterSquare(frame.Cols(), frame.Rows())
	if crop.Empty() {
		return nil, ErrCaptureNotReady
	}
	square := frame.Region(crop)
	defer square.Close()

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(square, &scaled, image.Pt(c.stillSize, c.stillSize), 0, 0, gocv.InterpolationArea)

	mirrored := gocv.NewMat()
	defer mirrored.Close()
	gocv.Flip(scaled, &mirrored, 1)

	img, err := mirrored.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

// Release stops the stream. a later capture reopens it.
func (c *Webcam) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	log.Printf("camera: released device %d", c.deviceID)
	return err
}

// CenterSquare returns the largest centred square inside a w×h frame
func CenterSquare(w, h int) image.Rectangle {
	size := w
	if h < size {
		size = h
	}
	if size <= 0 {
		return image.Rectangle{}
	}
	x := (w - size) / 2
	y := (h - size) / 2
	return image.Rect(x, y, x+size, y+size)
}
