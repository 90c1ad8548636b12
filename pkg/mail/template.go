package mail

import (
	"fmt"
	"time"
)

func passwordResetBody(fullName, resetURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="id">
<body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f5f7fa;">
  <div style="max-width:600px;margin:0 auto;background-color:#ffffff;border-radius:8px;">
    <div style="padding:32px;text-align:center;background-color:#003366;border-radius:8px 8px 0 0;">
      <h1 style="margin:0;color:#ffffff;font-size:22px;">Pusat Bantuan</h1>
    </div>
    <div style="padding:32px;">
      <h2 style="color:#1f2937;">Halo, %s</h2>
      <p style="color:#6b7280;line-height:1.6;">
        Kami menerima permintaan untuk mereset password akun Anda.
        Klik tombol di bawah ini untuk membuat password baru:
      </p>
      <p style="text-align:center;margin:30px 0;">
        <a href="%s" style="display:inline-block;padding:14px 40px;background-color:#003366;color:#ffffff;text-decoration:none;border-radius:6px;font-weight:bold;">Reset Password</a>
      </p>
      <p style="color:#6b7280;font-size:14px;">Atau copy dan paste link berikut ke browser Anda:</p>
      <p style="padding:12px;background-color:#f5f7fa;border-radius:4px;word-break:break-all;font-size:13px;color:#0052a3;">%s</p>
      <div style="padding:16px;background-color:#fef3c7;border-left:4px solid #d97706;border-radius:4px;">
        <p style="margin:0;color:#92400e;font-size:14px;">
          <strong>Penting:</strong> link ini kadaluarsa dalam <strong>1 jam</strong>.
          Jika Anda tidak meminta reset password, abaikan email ini.
        </p>
      </div>
    </div>
  </div>
</body>
</html>`, fullName, resetURL, resetURL)
}

func passwordChangedBody(fullName string, at time.Time) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="id">
<body style="margin:0;padding:0;font-family:Arial,sans-serif;">
  <div style="max-width:600px;margin:0 auto;">
    <h1 style="color:#003366;">Password Berhasil Diubah</h1>
    <p style="font-size:16px;color:#333;">Halo %s,</p>
    <p style="font-size:16px;color:#333;">
      Password akun Anda telah berhasil diubah pada %s.
    </p>
    <div style="background-color:#fef3c7;border-left:4px solid #d97706;padding:16px;margin:20px 0;">
      <p style="margin:0;color:#92400e;font-size:14px;">
        <strong>Jika Anda tidak melakukan perubahan ini, segera hubungi administrator.</strong>
      </p>
    </div>
  </div>
</body>
</html>`, fullName, at.Format("02 Jan 2006 15:04 MST"))
}
