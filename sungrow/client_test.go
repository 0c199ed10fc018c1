package sungrow

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/naturalnetworks/sungrow-bridge/config"
)

// fakeInverter serves the WiNet handshake, realtime queries and the i18n
// properties file from one httptest server.
func fakeInverter(t *testing.T, real []item, batteryOK bool) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()

	mux.HandleFunc("/i18n/en_US.properties", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("# labels\nI18N_COMMON_TOTAL_ACTIVE_POWER=Total Active Power\nI18N_COMMON_RUNNING_STATE=Running State\n"))
	})

	mux.HandleFunc("/ws/home/overview", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var req request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}

			switch req.Service {
			case "connect":
				conn.WriteJSON(response{ResultCode: 1, ResultMsg: "success",
					ResultData: resultData{Service: "connect", Token: "tok-1"}})
			case "real":
				if req.Token != "tok-1" {
					conn.WriteJSON(response{ResultCode: 100, ResultMsg: "token check error"})
					continue
				}
				conn.WriteJSON(response{ResultCode: 1, ResultMsg: "success",
					ResultData: resultData{Service: "real", List: real, Count: len(real)}})
			case "real_battery":
				if !batteryOK {
					conn.WriteJSON(response{ResultCode: 105, ResultMsg: "no battery"})
					continue
				}
				conn.WriteJSON(response{ResultCode: 1, ResultMsg: "success",
					ResultData: resultData{Service: "real_battery", List: []item{
						{DataName: "I18N_COMMON_BATTERY_SOC", DataValue: "87.5", DataUnit: "%"},
					}, Count: 1}})
			default:
				conn.WriteJSON(response{ResultCode: 100, ResultMsg: "unknown service"})
			}
		}
	})

	return httptest.NewServer(mux)
}

func clientFor(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()

	host, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	c, err := NewClient(config.SungrowConfig{Host: host, Port: port, TimeoutSeconds: 5})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.i18nURL = ts.URL + "/i18n/en_US.properties"
	return c
}

func TestGetData(t *testing.T) {
	ts := fakeInverter(t, []item{
		{DataName: "I18N_COMMON_TOTAL_ACTIVE_POWER", DataValue: "1523.4", DataUnit: "W"},
		{DataName: "I18N_COMMON_RUNNING_STATE", DataValue: "Running", DataUnit: ""},
		{DataName: "I18N_COMMON_METER_POWER", DataValue: "--", DataUnit: "W"},
	}, false)
	defer ts.Close()

	readings, err := clientFor(t, ts).GetData()
	if err != nil {
		t.Fatalf("get data: %v", err)
	}

	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d: %v", len(readings), readings)
	}

	power := readings["total_active_power"]
	if power.Value != 1523.4 {
		t.Fatalf("expected numeric value 1523.4, got %v (%T)", power.Value, power.Value)
	}
	if power.Desc != "Total Active Power (W)" {
		t.Fatalf("expected i18n label with unit, got %q", power.Desc)
	}

	state := readings["running_state"]
	if state.Value != "Running" {
		t.Fatalf("expected string value, got %v", state.Value)
	}
	if state.Desc != "Running State" {
		t.Fatalf("expected label without unit suffix, got %q", state.Desc)
	}

	// No i18n entry: label is derived from the data name.
	meter := readings["meter_power"]
	if meter.Value != Unavailable {
		t.Fatalf("expected unavailable sentinel preserved, got %v", meter.Value)
	}
	if meter.Desc != "Meter Power (W)" {
		t.Fatalf("expected derived label, got %q", meter.Desc)
	}
}

func TestGetDataMergesBattery(t *testing.T) {
	ts := fakeInverter(t, []item{
		{DataName: "I18N_COMMON_TOTAL_ACTIVE_POWER", DataValue: "100", DataUnit: "W"},
	}, true)
	defer ts.Close()

	readings, err := clientFor(t, ts).GetData()
	if err != nil {
		t.Fatalf("get data: %v", err)
	}

	soc, ok := readings["battery_soc"]
	if !ok {
		t.Fatalf("expected battery reading merged in, got %v", readings)
	}
	if soc.Value != 87.5 {
		t.Fatalf("expected battery soc 87.5, got %v", soc.Value)
	}
}

func TestGetDataUnreachableDevice(t *testing.T) {
	c, err := NewClient(config.SungrowConfig{Host: "127.0.0.1", Port: 1, TimeoutSeconds: 1})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := c.GetData(); err == nil {
		t.Fatal("expected error for unreachable device")
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(config.SungrowConfig{}); err == nil {
		t.Fatal("expected error for empty host")
	}
}

func TestReadingName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"I18N_COMMON_TOTAL_ACTIVE_POWER", "total_active_power"},
		{"I18N_CONFIG_KEY_1001", "config_key_1001"},
		{"plain", "plain"},
	}

	for _, c := range cases {
		if got := readingName(c.in); got != c.want {
			t.Fatalf("readingName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReadingValue(t *testing.T) {
	if v := readingValue("12.5"); v != 12.5 {
		t.Fatalf("expected float 12.5, got %v (%T)", v, v)
	}
	if v := readingValue("--"); v != Unavailable {
		t.Fatalf("expected sentinel preserved, got %v", v)
	}
	if v := readingValue("Running"); v != "Running" {
		t.Fatalf("expected string preserved, got %v", v)
	}
}
