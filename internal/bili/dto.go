package bili

import "encoding/json"

// envelope is the uniform response wrapper of the platform's web API.
// A non-zero Code is an application-level failure even on HTTP 200.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	TTL     int             `json:"ttl,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// navData carries account identity plus the WBI key delivery URLs
type navData struct {
	IsLogin bool   `json:"isLogin"`
	Mid     int64  `json:"mid,omitempty"`
	Uname   string `json:"uname,omitempty"`
	WbiImg  *struct {
		ImgURL string `json:"img_url"`
		SubURL string `json:"sub_url"`
	} `json:"wbi_img,omitempty"`
}

// folderListData is the created/list-all payload. List is null when the
// account has no folders.
type folderListData struct {
	Count int         `json:"count"`
	List  []folderDTO `json:"list,omitempty"`
}

type folderDTO struct {
	ID         int64  `json:"id"`
	FID        int64  `json:"fid"`
	Mid        int64  `json:"mid"`
	Attr       int    `json:"attr"`
	Title      string `json:"title"`
	Cover      string `json:"cover,omitempty"`
	MediaCount int    `json:"media_count"`
	CTime      int64  `json:"ctime,omitempty"`
	MTime      int64  `json:"mtime,omitempty"`
}

// resourceListData is one page of a folder's contents. Medias is null on
// pages past the end.
type resourceListData struct {
	Info    *folderDTO `json:"info,omitempty"`
	Medias  []mediaDTO `json:"medias,omitempty"`
	HasMore bool       `json:"has_more"`
}

type mediaDTO struct {
	ID       int64  `json:"id"`
	Type     int    `json:"type"`
	Title    string `json:"title"`
	Cover    string `json:"cover,omitempty"`
	Intro    string `json:"intro,omitempty"`
	Duration int64  `json:"duration"`
	Upper    *struct {
		Mid  int64  `json:"mid"`
		Name string `json:"name"`
		Face string `json:"face,omitempty"`
	} `json:"upper,omitempty"`
	CTime   int64  `json:"ctime,omitempty"`
	PubTime int64  `json:"pubtime,omitempty"`
	FavTime int64  `json:"fav_time,omitempty"`
	BVID    string `json:"bvid"`
}

// viewData is the subset of the video view payload needed to resolve a
// playable stream.
type viewData struct {
	BVID     string `json:"bvid"`
	AID      int64  `json:"aid"`
	CID      int64  `json:"cid"`
	Title    string `json:"title"`
	Pic      string `json:"pic,omitempty"`
	Duration int64  `json:"duration"`
	Owner    *struct {
		Mid  int64  `json:"mid"`
		Name string `json:"name"`
		Face string `json:"face,omitempty"`
	} `json:"owner,omitempty"`
}

// playURLData is the DASH playback payload. Only the audio streams are
// used; Dash is null for formats this client does not request.
type playURLData struct {
	TimeLength int64 `json:"timelength,omitempty"`
	Dash       *struct {
		Duration int64       `json:"duration,omitempty"`
		Audio    []dashAudio `json:"audio,omitempty"`
		Flac     *struct {
			Audio *dashAudio `json:"audio,omitempty"`
		} `json:"flac,omitempty"`
	} `json:"dash,omitempty"`
}

type dashAudio struct {
	ID        int    `json:"id"`
	BaseURL   string `json:"baseUrl,omitempty"`
	BaseURL2  string `json:"base_url,omitempty"`
	Bandwidth int    `json:"bandwidth,omitempty"`
	Codecs    string `json:"codecs,omitempty"`
}

// url returns whichever base URL field the server populated
func (a dashAudio) url() string {
	if a.BaseURL != "" {
		return a.BaseURL
	}
	return a.BaseURL2
}

// qrGenerateData is the login QR issuance payload
type qrGenerateData struct {
	URL       string `json:"url"`
	QRCodeKey string `json:"qrcode_key"`
}

// qrPollData is the login QR poll payload. Code here is the poll state,
// distinct from the envelope code.
type qrPollData struct {
	URL          string `json:"url,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Timestamp    int64  `json:"timestamp,omitempty"`
	Code         int    `json:"code"`
	Message      string `json:"message,omitempty"`
}
