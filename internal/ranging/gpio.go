package ranging

// The sensor on this board is wired with SDA/SCL only: XSHUT, GPIO1 and power
// are hard-wired, so the platform pin hooks succeed without doing anything.

// GpioSetMode is a no-op.
func (p *Platform) GpioSetMode(pin, mode uint8) error { return nil }

// GpioSetValue is a no-op.
func (p *Platform) GpioSetValue(pin, value uint8) error { return nil }

// GpioGetValue always reads 0.
func (p *Platform) GpioGetValue(pin uint8) (uint8, error) { return 0, nil }

// GpioXshutdown is a no-op.
func (p *Platform) GpioXshutdown(value uint8) error { return nil }

// GpioCommsSelect is a no-op.
func (p *Platform) GpioCommsSelect(value uint8) error { return nil }

// GpioPowerEnable is a no-op.
func (p *Platform) GpioPowerEnable(value uint8) error { return nil }

// GpioInterruptEnable is a no-op; handler is never called.
func (p *Platform) GpioInterruptEnable(handler func(), edge uint8) error { return nil }

// GpioInterruptDisable is a no-op.
func (p *Platform) GpioInterruptDisable() error { return nil }

// TimerFrequency reports 0 Hz: there is no hardware timer.
func (p *Platform) TimerFrequency() (int32, error) { return 0, nil }

// TimerValue reports 0.
func (p *Platform) TimerValue() (int32, error) { return 0, nil }
